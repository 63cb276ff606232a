package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clms-project/clms/internal/validator"
)

func Test_Validator_CheckAndValid(t *testing.T) {
	v := validator.New()
	assert.True(t, v.Valid())

	v.Check(true, "ok", "should not be recorded")
	assert.True(t, v.Valid())

	v.Check(false, "title", "must be provided")
	assert.False(t, v.Valid())
	assert.Equal(t, "must be provided", v.Errors["title"])
}

func Test_Validator_AddError_KeepsFirstMessage(t *testing.T) {
	v := validator.New()
	v.AddError("email", "must be provided")
	v.AddError("email", "must be a valid email address")

	assert.Equal(t, "must be provided", v.Errors["email"])
	assert.Len(t, v.Errors, 1)
}

func Test_In(t *testing.T) {
	assert.True(t, validator.In("pending", "pending", "approved", "rejected"))
	assert.False(t, validator.In("cancelled", "pending", "approved", "rejected"))
	assert.False(t, validator.In("anything"))
}

func Test_Matches_EmailRX(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"alice@example.com", true},
		{"alice.smith+tag@sub.example.co", true},
		{"not-an-email", false},
		{"@example.com", false},
		{"alice@", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, validator.Matches(tt.email, validator.EmailRX))
		})
	}
}

func Test_Unique(t *testing.T) {
	assert.True(t, validator.Unique([]string{"a", "b", "c"}))
	assert.True(t, validator.Unique(nil))
	assert.False(t, validator.Unique([]string{"a", "b", "a"}))
}
