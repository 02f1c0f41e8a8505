package discovery

import (
	"fmt"
	"os"
	"strconv"

	"github.com/hashicorp/consul/api"
)

type ConsulClient struct {
	client *api.Client
}

func NewConsulClient(address string) (*ConsulClient, error) {
	config := api.DefaultConfig()
	config.Address = address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	return &ConsulClient{client: client}, nil
}

// RegisterService registers the HTTP endpoint with a /health check and tags
// the gRPC port in the service metadata.
func (c *ConsulClient) RegisterService(serviceID, serviceName, httpPort, grpcPort string) error {
	registration, err := newRegistration(serviceID, serviceName, httpPort, grpcPort)
	if err != nil {
		return err
	}
	return c.client.Agent().ServiceRegister(registration)
}

func (c *ConsulClient) DeregisterService(serviceID string) error {
	return c.client.Agent().ServiceDeregister(serviceID)
}

func newRegistration(serviceID, serviceName, httpPort, grpcPort string) (*api.AgentServiceRegistration, error) {
	port, err := strconv.Atoi(httpPort)
	if err != nil {
		return nil, fmt.Errorf("invalid http port %q: %w", httpPort, err)
	}

	hostname := os.Getenv("HOSTNAME")
	if hostname == "" {
		hostname = serviceName
	}

	return &api.AgentServiceRegistration{
		ID:      serviceID,
		Name:    serviceName,
		Address: hostname,
		Port:    port,
		Meta:    map[string]string{"grpc_port": grpcPort},
		Check: &api.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d/health", hostname, port),
			Interval:                       "10s",
			Timeout:                        "5s",
			DeregisterCriticalServiceAfter: "30s",
		},
	}, nil
}
