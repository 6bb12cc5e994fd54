package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVenueAPIError_Transient(t *testing.T) {
	assert.True(t, (&VenueAPIError{StatusCode: 503}).Transient())
	assert.False(t, (&VenueAPIError{StatusCode: 400}).Transient())
	assert.False(t, (&VenueAPIError{StatusCode: 200}).Transient())
}

func TestIsTransient_UnwrapsChain(t *testing.T) {
	err := fmt.Errorf("GetBalance extended: %w", &VenueAPIError{Venue: "extended", StatusCode: 502})
	assert.True(t, IsTransient(err))

	err = fmt.Errorf("GetBalance extended: %w", &VenueAPIError{Venue: "extended", StatusCode: 403})
	assert.False(t, IsTransient(err))

	assert.False(t, IsTransient(fmt.Errorf("plain error")))
}

func TestIsSameSideRejection(t *testing.T) {
	assert.True(t, IsSameSideRejection("order would be on the Same Side"))
	assert.True(t, IsSameSideRejection("error code 1138"))
	// реджект без message: детектим по коду в нормализованном тексте
	assert.True(t, IsSameSideRejection("code=1138 "))
	assert.False(t, IsSameSideRejection("insufficient margin"))
	assert.False(t, IsSameSideRejection(""))
}

func TestSideHelpers(t *testing.T) {
	assert.Equal(t, SideShort, SideLong.Inverse())
	assert.Equal(t, SideLong, SideShort.Inverse())
	assert.Equal(t, "buy", SideLong.OrderSide())
	assert.Equal(t, "sell", SideShort.OrderSide())
	assert.Equal(t, SideLong, SideFromSigned(1.5))
	assert.Equal(t, SideShort, SideFromSigned(-0.1))
}

func TestInsufficientFundsError(t *testing.T) {
	err := &InsufficientFundsError{Required: 200, Available: 170}
	assert.InDelta(t, 30, err.Shortfall(), 1e-9)
	assert.Contains(t, err.Error(), "$30.00")
}
