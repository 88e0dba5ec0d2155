package model

// Counter is a named process-wide integer such as the link cursor.
type Counter struct {
	Name  string `gorm:"primaryKey"`
	Value int
}
