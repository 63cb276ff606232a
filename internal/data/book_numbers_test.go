package data_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clms-project/clms/internal/data"
	"github.com/clms-project/clms/internal/validator"
)

func Test_GenerateLabels(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		count  int
		suffix string
		want   []string
	}{
		{
			name:   "prefix_only",
			prefix: "BK7",
			count:  3,
			want:   []string{"BK7-001", "BK7-002", "BK7-003"},
		},
		{
			name:   "with_suffix",
			prefix: "GATSBY",
			count:  2,
			suffix: "HC",
			want:   []string{"GATSBY-001-HC", "GATSBY-002-HC"},
		},
		{
			name:   "zero_count",
			prefix: "BK1",
			count:  0,
			want:   []string{},
		},
		{
			name:   "padding_extends_past_three_digits",
			prefix: "BK2",
			count:  1000,
			want:   nil, // checked separately below
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := data.GenerateLabels(tt.prefix, tt.count, tt.suffix)
			assert.Len(t, got, tt.count)
			if tt.want != nil {
				assert.Equal(t, tt.want, got)
			}
		})
	}

	// Labels stay unique and parseable when the index outgrows the padding.
	labels := data.GenerateLabels("BK2", 1000, "")
	assert.Equal(t, "BK2-001", labels[0])
	assert.Equal(t, "BK2-999", labels[998])
	assert.Equal(t, "BK2-1000", labels[999])
	assert.True(t, validator.Unique(labels))
}

func Test_ValidateBookNumber(t *testing.T) {
	valid := &data.BookNumber{BookID: 1, Label: "BK1-001", Status: data.CopyAvailable}

	v := validator.New()
	data.ValidateBookNumber(v, valid)
	assert.True(t, v.Valid())

	v = validator.New()
	data.ValidateBookNumber(v, &data.BookNumber{Label: "BK1-001", Status: data.CopyAvailable})
	assert.Contains(t, v.Errors, "book_id")

	v = validator.New()
	data.ValidateBookNumber(v, &data.BookNumber{BookID: 1, Status: data.CopyAvailable})
	assert.Contains(t, v.Errors, "label")

	v = validator.New()
	data.ValidateBookNumber(v, &data.BookNumber{BookID: 1, Label: "BK1-001", Status: "lost"})
	assert.Contains(t, v.Errors, "status")
}
