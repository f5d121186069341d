package requirement

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRequirements(t *testing.T) {
	p, err := NewParser()
	require.NoError(t, err)

	reqs, err := p.ParseString(`
# forced pins
pin status = D13 : digital;
pin spare = 7;

periph dbg : serial;
periph leds : digital x 3 bank auto;
periph keys : digital x 2 bank 1;
periph free : digital x 4 bank any;
periph flash : spi optional;
`)
	require.NoError(t, err)
	require.Equal(t, []Requirement{
		SinglePin{ID: "status", PinID: "D13", Capability: "digital"},
		SinglePin{ID: "spare", PinID: "7"},
		Peripheral{ID: "dbg", Capability: "serial", Count: 1},
		Peripheral{ID: "leds", Capability: "digital", Count: 3, Bank: AutoBank},
		Peripheral{ID: "keys", Capability: "digital", Count: 2, Bank: BankOf(1)},
		Peripheral{ID: "free", Capability: "digital", Count: 4, Bank: AnyBank},
		Peripheral{ID: "flash", Capability: "spi", Count: 1, IncludeOptionalPins: true},
	}, reqs)
}

func TestParseErrors(t *testing.T) {
	p, err := NewParser()
	require.NoError(t, err)

	for _, input := range []string{
		"pin a = ;",
		"periph a serial;",
		"periph a : digital x three;",
		"periph a : digital bank;",
		"pin a = D1 : digital",
	} {
		_, err := p.ParseString(input)
		require.ErrorContains(t, err, "requirement: ", input)
	}
}

func TestParseFile(t *testing.T) {
	p, err := NewParser()
	require.NoError(t, err)

	reqs, err := p.ParseFile(filepath.Join("..", "..", "testdata", "requirements", "devkit.pins"))
	require.NoError(t, err)
	require.Len(t, reqs, 6)

	singles, periphs := Split(reqs)
	require.Len(t, singles, 1)
	require.Len(t, periphs, 5)
	require.Equal(t, "console", periphs[0].Key())
	require.Equal(t, "serial", periphs[0].Wants())

	_, err = p.ParseFile("does-not-exist.pins")
	require.ErrorIs(t, err, os.ErrNotExist)
	require.ErrorContains(t, err, "requirement: ")

	bad := filepath.Join(t.TempDir(), "bad.pins")
	require.NoError(t, os.WriteFile(bad, []byte("periph a serial;\n"), 0o600))
	_, err = p.ParseFile(bad)
	require.ErrorContains(t, err, "requirement: ")
	require.ErrorContains(t, err, "bad.pins")
}

func TestBankSelector(t *testing.T) {
	tests := []struct {
		in   string
		want BankSelector
	}{
		{"", BankSelector{}},
		{"R", AnyBank},
		{"A", AutoBank},
		{"a", AutoBank},
		{"2", BankOf(2)},
	}
	for _, tt := range tests {
		got, err := ParseBank(tt.in)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseBank("Z")
	require.Error(t, err)
	_, err = ParseBank("-1")
	require.Error(t, err)

	require.Equal(t, "3", BankOf(3).String())
	bank, ok := BankOf(3).Fixed()
	require.True(t, ok)
	require.Equal(t, 3, bank)
	_, ok = AutoBank.Fixed()
	require.False(t, ok)
}

func TestListJSON(t *testing.T) {
	var l List
	err := json.Unmarshal([]byte(`[
		{"kind":"pin","id":"led","pin":"D2","capability":"pwm"},
		{"kind":"peripheral","id":"leds","capability":"digital","count":3,"gpioPort":"A"},
		{"id":"bus","capability":"i2c","includeOptionalPins":true}
	]`), &l)
	require.NoError(t, err)
	require.Equal(t, List{
		SinglePin{ID: "led", PinID: "D2", Capability: "pwm"},
		Peripheral{ID: "leds", Capability: "digital", Count: 3, Bank: AutoBank},
		Peripheral{ID: "bus", Capability: "i2c", Count: 1, IncludeOptionalPins: true},
	}, l)

	data, err := json.Marshal([]Requirement(l))
	require.NoError(t, err)
	require.JSONEq(t, `[
		{"kind":"pin","id":"led","pin":"D2","capability":"pwm"},
		{"kind":"peripheral","id":"leds","capability":"digital","count":3,"gpioPort":"A"},
		{"kind":"peripheral","id":"bus","capability":"i2c","count":1,"includeOptionalPins":true}
	]`, string(data))
}

func TestListJSONErrors(t *testing.T) {
	for _, doc := range []string{
		`{}`,
		`[{"kind":"bus","id":"x"}]`,
		`[{"kind":"pin","id":"x","capability":"pwm"}]`,
		`[{"kind":"peripheral","id":"x","capability":"digital","gpioPort":"Q"}]`,
	} {
		var l List
		require.Error(t, json.Unmarshal([]byte(doc), &l), doc)
	}
}
