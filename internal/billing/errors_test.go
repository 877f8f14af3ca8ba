package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateMapsVendorCodes(t *testing.T) {
	cases := []struct {
		vendor ResponseCode
		want   Code
	}{
		{ResponseOK, Ok},
		{ResponseUserCanceled, UserCancelled},
		{ResponseItemUnavailable, ItemUnavailable},
		{ResponseItemAlreadyOwned, ItemAlreadyOwned},
		{ResponseItemNotOwned, ItemNotOwned},
		{ResponseServiceUnavailable, BadResponseFromServer},
		{ResponseBillingUnavailable, BadResponseFromServer},
		{ResponseNetworkError, BadResponseFromServer},
		{ResponseDeveloperError, InvalidArguments},
		{ResponseError, UnknownError},
		{ResponseCode(99), UnknownError},
	}
	for _, tc := range cases {
		err := Translate("op", Result{Code: tc.vendor, Message: "detail"})
		assert.Equal(t, tc.want, err.Code, "vendor code %d", tc.vendor)
		require.NotNil(t, err.VendorCode)
		assert.Equal(t, tc.vendor, *err.VendorCode, "raw vendor code must be preserved")
		assert.Equal(t, "detail", err.VendorMessage)
	}
}

func TestTranslateAsForcesPrimaryCode(t *testing.T) {
	err := translateAs("consume", ConsumeFailed, Result{Code: ResponseItemNotOwned, Message: "not owned"})
	assert.Equal(t, ConsumeFailed, err.Code)
	require.NotNil(t, err.VendorCode)
	assert.Equal(t, ResponseItemNotOwned, *err.VendorCode)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, Ok, CodeOf(nil))
	assert.Equal(t, ItemUnavailable, CodeOf(NewError(ItemUnavailable, "x")))
	assert.Equal(t, UnknownError, CodeOf(assert.AnError))
}

func TestCodeValuesAreStable(t *testing.T) {
	// The numeric values are the caller contract; renumbering breaks clients.
	assert.Equal(t, 0, int(Ok))
	assert.Equal(t, -1, int(InvalidArguments))
	assert.Equal(t, -2, int(UnableToInitialize))
	assert.Equal(t, -3, int(NotInitialized))
	assert.Equal(t, -4, int(UnknownError))
	assert.Equal(t, -5, int(UserCancelled))
	assert.Equal(t, -6, int(BadResponseFromServer))
	assert.Equal(t, -7, int(VerificationFailed))
	assert.Equal(t, -8, int(ItemUnavailable))
	assert.Equal(t, -9, int(ItemAlreadyOwned))
	assert.Equal(t, -10, int(ItemNotOwned))
	assert.Equal(t, -11, int(ConsumeFailed))
	assert.Equal(t, -12, int(OperationInProgress))
}
