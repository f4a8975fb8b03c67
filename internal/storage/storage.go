// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"

	"card_bot/internal/model"
)

// ErrCorrupt is returned by Load when persisted state cannot be decoded.
var ErrCorrupt = errors.New("persisted state is corrupt")

// Storage persists the bot state as a whole.
type Storage interface {
	Load(ctx context.Context) (*model.State, error)
	Save(ctx context.Context, state *model.State) error
	Close() error
}
