package catalog

type Product struct {
	ID     uint
	Name   string
	Active bool
}
