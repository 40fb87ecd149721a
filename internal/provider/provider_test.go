package provider

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/finsense/payment-service/internal/domain"
)

type fakeAdapter struct {
	tag string
}

func (f *fakeAdapter) InitiateB2CPayment(ctx context.Context, tx *domain.Transaction) (string, error) {
	return f.tag + "_ref", nil
}

func (f *fakeAdapter) CheckPaymentStatus(ctx context.Context, providerTransactionID string) (domain.PaymentStatus, error) {
	return domain.StatusSuccess, nil
}

func (f *fakeAdapter) ProviderType() string {
	return f.tag
}

func TestRegistry_ResolveIsCaseInsensitive(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(&fakeAdapter{tag: "MPESA"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	for _, tag := range []string{"MPESA", "mpesa", " Mpesa "} {
		if _, err := registry.Resolve(tag); err != nil {
			t.Fatalf("expected %q to resolve, got %v", tag, err)
		}
	}
}

func TestRegistry_UnknownTagReturnsNotRegistered(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Resolve("ORANGE_MONEY")
	if !errors.Is(err, ErrProviderNotRegistered) {
		t.Fatalf("expected ErrProviderNotRegistered, got %v", err)
	}
}

func TestRegistry_DuplicateRegistrationIsRejected(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(&fakeAdapter{tag: "MPESA"}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if err := registry.Register(&fakeAdapter{tag: "mpesa"}); err == nil {
		t.Fatal("expected duplicate registration to be rejected")
	}
}

func TestRegistry_EmptyTagIsRejected(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(&fakeAdapter{tag: "  "}); err == nil {
		t.Fatal("expected an empty provider type to be rejected")
	}
}

func TestRegistry_TagsAreSorted(t *testing.T) {
	registry := NewRegistry()
	for _, tag := range []string{"MPESA", "AIRTEL_MONEY", "MOCK"} {
		if err := registry.Register(&fakeAdapter{tag: tag}); err != nil {
			t.Fatalf("register %q failed: %v", tag, err)
		}
	}

	want := []string{"AIRTEL_MONEY", "MOCK", "MPESA"}
	if got := registry.Tags(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected sorted tags %v, got %v", want, got)
	}
}

func TestMockProvider_InitiateReturnsPrefixedReference(t *testing.T) {
	mock := NewMockProvider()

	ref, err := mock.InitiateB2CPayment(context.Background(), &domain.Transaction{ID: "txn_1"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !strings.HasPrefix(ref, "MOCK_") {
		t.Fatalf("expected a MOCK_ prefixed reference, got %q", ref)
	}

	status, err := mock.CheckPaymentStatus(context.Background(), ref)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if status != domain.StatusSuccess {
		t.Fatalf("expected the mock to always report SUCCESS, got %s", status)
	}
}
