package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/staymarket/staycore/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name              string
		paidSoFar, amount int64
		total             int64
		want              domain.PaymentType
	}{
		{"first payment below total is a deposit", 0, 2000, 10000, domain.PaymentDeposit},
		{"first payment covering total is full", 0, 10000, 10000, domain.PaymentFull},
		{"middle payment is partial", 2000, 3000, 10000, domain.PaymentPartial},
		{"payment reaching total is final", 7000, 3000, 10000, domain.PaymentFinal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.paidSoFar, tt.amount, tt.total))
		})
	}
}
