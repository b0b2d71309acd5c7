package game

import "github.com/google/uuid"

type uuidIdGen struct{}

func (uuidIdGen) Generate() string {
	return uuid.NewString()
}

func NewIdGen() UniqueIdGenerator {
	return uuidIdGen{}
}
