package address

type Address struct {
	ID     uint
	UserID uint
	Text   string
}
