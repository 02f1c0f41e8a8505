package domain

type Category struct {
	ID   string
	Name string
}
