package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/shop-inventory/internal/adapter/auth"
	"github.com/rl1809/shop-inventory/internal/adapter/handler"
)

// loadgen fires concurrent stock-outs of 1 at a fresh product and checks that
// exactly the opening stock succeeds and the counter ends at zero.

type product struct {
	ID           string `json:"id"`
	CurrentStock string `json:"current_stock"`
}

func main() {
	var (
		httpAddr     = flag.String("http", "http://localhost:8080", "HTTP base URL")
		grpcAddr     = flag.String("grpc", "localhost:50051", "gRPC address")
		initialStock = flag.Int("stock", 20, "opening stock of the test product")
		requests     = flag.Int("requests", 50, "concurrent stock-out requests")
	)
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	verifier := auth.NewVerifier(secret, envOr("JWT_AUDIENCE", "authenticated"))
	token, err := verifier.Sign("loadgen-"+uuid.NewString(), time.Hour)
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}
	bearer := "Bearer " + token

	// Create the product
	var created product
	agent := fiber.Post(*httpAddr + "/api/products")
	agent.Set(fiber.HeaderAuthorization, bearer)
	agent.JSON(fiber.Map{
		"name":          "loadgen item",
		"current_stock": *initialStock,
		"unit":          "pcs",
	})
	code, _, errs := agent.Struct(&created)
	if len(errs) > 0 || code != fiber.StatusCreated {
		log.Fatalf("failed to create product: status %d, errors %v", code, errs)
	}

	conn, err := grpc.NewClient(*grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("failed to connect grpc: %v", err)
	}
	defer conn.Close()
	client := handler.NewInventoryClient(conn)

	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", bearer)

	var successCount, rejectedCount, failCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := client.ApplyStockMovement(ctx, &handler.ApplyStockMovementRequest{
				ProductID: created.ID,
				Direction: "out",
				Quantity:  "1",
				RequestID: uuid.NewString(),
			})
			switch status.Code(err) {
			case codes.OK:
				successCount.Add(1)
			case codes.FailedPrecondition:
				rejectedCount.Add(1)
			default:
				failCount.Add(1)
				log.Printf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := int(successCount.Load())
	rejected := int(rejectedCount.Load())

	fmt.Println("========== LOAD TEST RESULTS ==========")
	fmt.Printf("Opening Stock:    %d\n", *initialStock)
	fmt.Printf("Total Requests:   %d\n", *requests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Rejected:         %d\n", rejected)
	fmt.Printf("Errors:           %d\n", failCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("========================================")

	expected := min(*initialStock, *requests)
	if success == expected && rejected == *requests-expected {
		fmt.Printf("PASS: exactly %d stock-outs succeeded\n", expected)
	} else {
		fmt.Printf("FAIL: expected %d success/%d rejected, got %d/%d\n",
			expected, *requests-expected, success, rejected)
	}

	var final product
	agent = fiber.Get(*httpAddr + "/api/products/" + created.ID)
	agent.Set(fiber.HeaderAuthorization, bearer)
	if code, _, errs := agent.Struct(&final); len(errs) > 0 || code != fiber.StatusOK {
		log.Fatalf("failed to read product: status %d, errors %v", code, errs)
	}
	fmt.Printf("Final Stock:      %s\n", final.CurrentStock)

	if want := fmt.Sprint(*initialStock - expected); final.CurrentStock == want {
		fmt.Println("PASS: no lost updates")
	} else {
		fmt.Printf("FAIL: expected stock %s, got %s\n", want, final.CurrentStock)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
