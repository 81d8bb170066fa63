package models

// SequenceCounter is a durable named counter mutated only through a single
// atomic increment-and-read statement. Never read-then-write.
type SequenceCounter struct {
	Name  string `gorm:"column:name;primaryKey"`
	Value int64  `gorm:"column:value;not null;default:0"`
}
