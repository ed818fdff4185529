package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/soundbite/engagement/internal/domain"
)

type sample struct {
	ContentID string  `json:"contentId" validate:"required,uuid"`
	Note      *string `json:"note,omitempty" validate:"omitempty,max=4"`
	Count     *int64  `json:"count" validate:"omitempty,min=0"`
	Other     string  `json:"other" validate:"omitempty,nefield=ContentID"`
}

func TestStruct(t *testing.T) {
	long := "too long"
	neg := int64(-1)
	zero := int64(0)
	id := "6f1c29a4-8e0b-4b8e-9f43-3f8c2b8f9a10"

	tests := []struct {
		name string
		in   sample
		want string
	}{
		{"valid", sample{ContentID: id, Count: &zero}, ""},
		{"missing", sample{}, "validation failed: contentId is required"},
		{"not uuid", sample{ContentID: "abc"}, "validation failed: contentId must be a UUID"},
		{"too long", sample{ContentID: id, Note: &long}, "validation failed: note must be at most 4 characters"},
		{"negative", sample{ContentID: id, Count: &neg}, "validation failed: count must be at least 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.EqualError(t, err, tt.want)
		})
	}
}
