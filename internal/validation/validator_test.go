package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/recipe-room/internal/apperror"
)

type sample struct {
	Title       string  `json:"title" validate:"notblank,max=10"`
	Email       string  `json:"email" validate:"omitempty,email"`
	ServingSize *int    `json:"serving_size,omitempty" validate:"omitempty,gt=0"`
	Rating      int     `json:"value" validate:"min=1,max=5"`
	Internal    string  `json:"-"`
	Country     *string `json:"country" validate:"omitempty,max=3"`
}

func TestStruct(t *testing.T) {
	zero := 0
	long := "abcd"

	tests := []struct {
		name      string
		in        sample
		wantField string
		wantMsg   string
	}{
		{"valid", sample{Title: "Soup", Rating: 3}, "", ""},
		{"blank title", sample{Title: "   ", Rating: 3}, "title", "title is required"},
		{"title too long", sample{Title: "a very long title", Rating: 3}, "title", "title must be at most 10 characters"},
		{"bad email", sample{Title: "Soup", Email: "nope", Rating: 3}, "email", "email must be a valid email address"},
		{"zero serving size", sample{Title: "Soup", ServingSize: &zero, Rating: 3}, "serving_size", "serving_size must be greater than 0"},
		{"rating out of range", sample{Title: "Soup", Rating: 6}, "value", "value must be at most 5"},
		{"pointer string length", sample{Title: "Soup", Rating: 1, Country: &long}, "country", "country must be at most 3 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(&tt.in)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, apperror.ErrValidation))

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.wantField, appErr.Field)
			assert.Equal(t, tt.wantMsg, appErr.Message)
		})
	}
}
