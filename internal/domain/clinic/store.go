package clinic

import (
	"context"
	"fmt"
)

// Store persists the clinic document as a single unit. There is no locking
// between Load and Save: concurrent writers race and the last Save wins.
type Store interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
	Ping(ctx context.Context) error
}

// Update loads the document, applies fn and saves the result. Nothing is
// saved when fn returns an error.
func Update(ctx context.Context, store Store, fn func(doc *Document) error) error {
	doc, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if err := fn(doc); err != nil {
		return err
	}
	if err := store.Save(ctx, doc); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}
