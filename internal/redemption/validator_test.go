package redemption

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ta3leemy/backend/internal/models"
)

func TestValidateForTarget(t *testing.T) {
	targetID := uuid.New()
	otherID := uuid.New()

	generic := func(price float64) *models.AccessCode {
		return &models.AccessCode{ID: uuid.New(), Status: models.CodeStatusAvailable, Price: price}
	}
	targeted := func(id uuid.UUID) *models.AccessCode {
		return &models.AccessCode{ID: uuid.New(), Status: models.CodeStatusAvailable, TargetID: &id}
	}

	tests := []struct {
		name    string
		code    *models.AccessCode
		price   float64
		wantErr error
	}{
		{name: "nil code", code: nil, price: 100, wantErr: ErrCodeNotFound},
		{
			name:    "used code",
			code:    &models.AccessCode{ID: uuid.New(), Status: models.CodeStatusUsed, Price: 100},
			price:   100,
			wantErr: ErrCodeNotFound,
		},
		{name: "generic exact price", code: generic(100), price: 100, wantErr: nil},
		{name: "generic free item", code: generic(0), price: 0, wantErr: nil},
		{name: "generic overpays", code: generic(150), price: 100, wantErr: ErrValueTooHigh},
		{name: "generic underpays", code: generic(50), price: 100, wantErr: ErrValueTooLow},
		{name: "generic off by a cent", code: generic(99.99), price: 100, wantErr: ErrValueTooLow},
		{name: "targeted matching target", code: targeted(targetID), price: 100, wantErr: nil},
		{name: "targeted wrong target", code: targeted(otherID), price: 100, wantErr: ErrWrongTarget},
		{
			// Targeted codes ignore price entirely.
			name:    "targeted price mismatch still valid",
			code:    &models.AccessCode{ID: uuid.New(), Status: models.CodeStatusAvailable, TargetID: &targetID, Price: 1},
			price:   500,
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateForTarget(tt.code, targetID, tt.price)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
