package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSendMessage(t *testing.T) {
	url := "https://cdn.example.com/pic.png"
	blank := "   "

	t.Run("text requires content", func(t *testing.T) {
		assert.False(t, ValidateSendMessage("text", "hello", nil, nil).HasErrors())
		assert.True(t, ValidateSendMessage("text", "   ", nil, nil).HasErrors())
	})

	t.Run("empty type defaults to text", func(t *testing.T) {
		assert.False(t, ValidateSendMessage("", "hello", nil, nil).HasErrors())
		assert.True(t, ValidateSendMessage("", "", nil, nil).HasErrors())
	})

	t.Run("image requires a url", func(t *testing.T) {
		assert.False(t, ValidateSendMessage("image", "", &url, nil).HasErrors())
		assert.True(t, ValidateSendMessage("image", "", nil, nil).HasErrors())
		assert.True(t, ValidateSendMessage("image", "", &blank, nil).HasErrors())
	})

	t.Run("file requires a url", func(t *testing.T) {
		assert.False(t, ValidateSendMessage("file", "", nil, &url).HasErrors())
		assert.True(t, ValidateSendMessage("file", "", nil, nil).HasErrors())
	})

	t.Run("unknown type is rejected", func(t *testing.T) {
		errs := ValidateSendMessage("video", "x", nil, nil)
		assert.True(t, errs.HasErrors())
		assert.Contains(t, errs, "message_type")
	})
}

func TestValidateRegister(t *testing.T) {
	t.Run("accepts a valid registration", func(t *testing.T) {
		errs := ValidateRegister("jane@example.com", "jane_doe", "Jane Doe", "Secret123")
		assert.False(t, errs.HasErrors())
	})

	t.Run("flags each bad field", func(t *testing.T) {
		errs := ValidateRegister("not-an-email", "j", "", "short")
		assert.Contains(t, errs, "email")
		assert.Contains(t, errs, "username")
		assert.Contains(t, errs, "display_name")
		assert.Contains(t, errs, "password")
	})

	t.Run("password needs mixed case and a digit", func(t *testing.T) {
		errs := ValidateRegister("jane@example.com", "jane_doe", "Jane Doe", "alllowercase")
		assert.Contains(t, errs, "password")
	})
}
