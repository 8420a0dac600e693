package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid metadata block").
			WithSeverity(SeverityFatal).
			WithContext("path", "_posts/2024-01-01-a.md").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		if err.Message() != "invalid metadata block" {
			t.Errorf("unexpected message %q", err.Message())
		}
		path, exists := err.Context().GetString("path")
		if !exists || path != "_posts/2024-01-01-a.md" {
			t.Errorf("expected context path, got %v", path)
		}
	})

	t.Run("Convenience constructors are fatal", func(t *testing.T) {
		for _, b := range []*ErrorBuilder{ConfigError("a"), NamingError("b"), FileSystemError("c"), TemplateError("d")} {
			if !b.Build().IsFatal() {
				t.Errorf("expected %s error to be fatal", b.Build().Category())
			}
		}
	})
}

func TestErrorMessageIncludesContextAndCause(t *testing.T) {
	cause := errors.New("no such file")
	err := FileSystemError("read document").WithContext("path", "a.md").WithCause(cause).Build()

	want := "[filesystem] read document path=a.md: no such file"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable through errors.Is")
	}
}

func TestAsClassifiedWalksWrapChains(t *testing.T) {
	inner := NamingError("bad post filename").Build()
	wrapped := fmt.Errorf("load posts: %w", inner)
	joined := errors.Join(errors.New("plain"), wrapped)

	got, ok := AsClassified(joined)
	if !ok {
		t.Fatal("expected classified error in joined chain")
	}
	if got.Category() != CategoryNaming {
		t.Fatalf("expected naming category, got %s", got.Category())
	}
	if !HasCategory(joined, CategoryNaming) {
		t.Fatal("HasCategory should find naming error")
	}
	if HasCategory(joined, CategoryTemplate) {
		t.Fatal("HasCategory should not report template category")
	}
	if GetCategory(errors.New("x")) != CategoryInternal {
		t.Fatal("unclassified errors default to internal")
	}
}

func TestErrorContextMerge(t *testing.T) {
	a := ErrorContext{"a": 1, "b": 1}
	b := ErrorContext{"b": 2}
	merged := a.Merge(b)
	if merged["a"] != 1 || merged["b"] != 2 {
		t.Fatalf("unexpected merge result: %v", merged)
	}
	if a["b"] != 1 {
		t.Fatal("merge must not mutate receiver")
	}
}
