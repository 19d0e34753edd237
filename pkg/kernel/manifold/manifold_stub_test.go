//go:build !manifold

package manifold

import (
	"errors"
	"testing"
)

func TestStubNewFails(t *testing.T) {
	k, err := New()
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("New() error = %v, want ErrUnavailable", err)
	}
	if k != nil {
		t.Fatal("New() returned a kernel from the stub build")
	}
}
