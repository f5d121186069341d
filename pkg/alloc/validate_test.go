package alloc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/pinplan/pkg/requirement"
)

func TestValidateClean(t *testing.T) {
	b := devkit(t)
	errs := Validate(loadReqs(t, "devkit.pins"), b.Capabilities)
	require.Empty(t, errs)
}

func TestValidateSinglePins(t *testing.T) {
	b := devkit(t)
	reqs := []requirement.Requirement{
		requirement.SinglePin{ID: "led", PinID: "D2", Capability: "pwm"},
		requirement.SinglePin{ID: "beep", PinID: "D2", Capability: "digital"},
		requirement.SinglePin{ID: "spare", PinID: "D3"},
		requirement.SinglePin{ID: "again", PinID: "D2", Capability: "digital"},
	}

	errs := Validate(reqs, b.Capabilities)
	require.Len(t, errs, 2)

	conflict := errs.Find(SinglePinConflict)
	require.NotNil(t, conflict)
	require.Equal(t, "D2", conflict.Details.PinID)
	require.Equal(t, []string{"led", "beep", "again"}, conflict.Details.RequirementIDs)

	missing := errs.Find(SinglePinMissingPeripheral)
	require.NotNil(t, missing)
	require.Equal(t, []string{"spare"}, missing.Details.RequirementIDs)
}

func TestValidatePortLimit(t *testing.T) {
	b := devkit(t)
	reqs := []requirement.Requirement{
		requirement.Peripheral{ID: "u1", Capability: "serial", Count: 1},
		requirement.Peripheral{ID: "u2", Capability: "serial", Count: 2},
		requirement.Peripheral{ID: "u3", Capability: "serial", Count: 1},
	}

	errs := Validate(reqs, b.Capabilities)
	require.Len(t, errs, 1, "one finding per capability")
	e := errs[0]
	require.Equal(t, PortLimitExceeded, e.Type)
	require.Equal(t, 4, e.Details.Requested)
	require.Equal(t, 2, e.Details.Maximum)
	require.Equal(t, []string{"u1", "u2", "u3"}, e.Details.RequirementIDs)
	require.Equal(t, "4 serial port(s) requested, board provides 2", e.Message)
}

func TestValidatePinLimit(t *testing.T) {
	b := devkit(t)
	reqs := []requirement.Requirement{
		requirement.Peripheral{ID: "adc", Capability: "analog", Count: 5},
	}

	errs := Validate(reqs, b.Capabilities)
	require.Len(t, errs, 1)
	require.Equal(t, PinLimitExceeded, errs[0].Type)
	require.Equal(t, "analog", errs[0].Details.Capability)
}

func TestValidateDigitalLimits(t *testing.T) {
	b := devkit(t)

	errs := Validate([]requirement.Requirement{
		requirement.Peripheral{ID: "keys", Capability: "digital", Count: 3, Bank: requirement.BankOf(3)},
	}, b.Capabilities)
	require.Len(t, errs, 1)
	e := errs[0]
	require.Equal(t, GPIOPinLimitExceeded, e.Type)
	require.NotNil(t, e.Details.Bank)
	require.Equal(t, 3, *e.Details.Bank)
	require.Equal(t, 2, e.Details.Maximum)

	// Auto and any-bank requests only count against the global cap.
	errs = Validate([]requirement.Requirement{
		requirement.Peripheral{ID: "a", Capability: "digital", Count: 6, Bank: requirement.AutoBank},
		requirement.Peripheral{ID: "b", Capability: "digital", Count: 6, Bank: requirement.AnyBank},
		requirement.Peripheral{ID: "c", Capability: "digital", Count: 1},
	}, b.Capabilities)
	require.Len(t, errs, 1)
	require.Equal(t, PinLimitExceeded, errs[0].Type)
	require.Equal(t, 13, errs[0].Details.Requested)
	require.Equal(t, 12, errs[0].Details.Maximum)
}

func TestValidateCountsPinClaims(t *testing.T) {
	b := devkit(t)

	errs := Validate([]requirement.Requirement{
		requirement.SinglePin{ID: "status", PinID: "D2", Capability: "pwm"},
		requirement.Peripheral{ID: "motors", Capability: "pwm", Count: 4},
	}, b.Capabilities)
	require.Len(t, errs, 1)
	e := errs[0]
	require.Equal(t, PinLimitExceeded, e.Type)
	require.Equal(t, 5, e.Details.Requested)
	require.Equal(t, 4, e.Details.Maximum)
	require.Equal(t, []string{"status", "motors"}, e.Details.RequirementIDs)

	// Digital pin claims reach the global cap but no bank.
	errs = Validate([]requirement.Requirement{
		requirement.SinglePin{ID: "irq", PinID: "D0", Capability: "digital"},
		requirement.Peripheral{ID: "leds", Capability: "digital", Count: 6, Bank: requirement.BankOf(1)},
		requirement.Peripheral{ID: "keys", Capability: "digital", Count: 6, Bank: requirement.AnyBank},
	}, b.Capabilities)
	require.Len(t, errs, 1)
	require.Equal(t, PinLimitExceeded, errs[0].Type)
	require.Equal(t, 13, errs[0].Details.Requested)
}

func TestValidationErrorJSONKeepsZeroMaximum(t *testing.T) {
	b := devkit(t)
	errs := Validate([]requirement.Requirement{
		requirement.Peripheral{ID: "keys", Capability: "digital", Count: 1, Bank: requirement.BankOf(7)},
	}, b.Capabilities)
	require.Len(t, errs, 1)
	require.Equal(t, GPIOPinLimitExceeded, errs[0].Type)

	data, err := json.Marshal(errs[0])
	require.NoError(t, err)
	require.Contains(t, string(data), `"requested":1`)
	require.Contains(t, string(data), `"maximum":0`)

	data, err = json.Marshal(&ValidationError{Type: InvalidRequirement, Message: "bad"})
	require.NoError(t, err)
	require.Contains(t, string(data), `"maximum":0`)
}

func TestValidateShapes(t *testing.T) {
	b := devkit(t)
	reqs := []requirement.Requirement{
		requirement.Peripheral{ID: "a", Capability: "audio", Count: 1},
		requirement.Peripheral{ID: "b", Capability: "pwm", Count: 0},
		requirement.Peripheral{ID: "c", Capability: "analog", Count: 1, Bank: requirement.BankOf(1)},
		requirement.Peripheral{ID: "c", Capability: "pwm", Count: 1},
	}

	errs := Validate(reqs, b.Capabilities)
	require.Len(t, errs, 4)
	for _, e := range errs {
		require.Equal(t, InvalidRequirement, e.Type)
	}
	require.Contains(t, errs.Error(), "duplicate requirement id \"c\"")
}

func TestValidatePinsAgainstBoard(t *testing.T) {
	b := devkit(t)
	reqs := []requirement.Requirement{
		requirement.SinglePin{ID: "x", PinID: "Z9", Capability: "pwm"},
		requirement.SinglePin{ID: "y", PinID: "GND1", Capability: "digital"},
		requirement.SinglePin{ID: "z", PinID: "D0", Capability: "pwm"},
		requirement.SinglePin{ID: "ok", PinID: "D3", Capability: "pwm"},
	}

	errs := validatePins(reqs, b)
	require.Len(t, errs, 3)
	require.Equal(t, []string{"x"}, errs[0].Details.RequirementIDs)
	require.Contains(t, errs[1].Message, "ground")
	require.Equal(t, "D0", errs[2].Details.PinID)
}
