package memstore

import (
	"testing"

	"techslots/internal/store"
	"techslots/internal/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}
