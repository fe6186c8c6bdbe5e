package services

import (
	"context"

	"github.com/terraincognita07/lifelog/internal/db"
)

// Store opens request transactions. Every read and write of one service
// call goes through the tx handle passed to fn.
type Store interface {
	Transaction(ctx context.Context, fn func(tx *db.Repositories) error) error
}
