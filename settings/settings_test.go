package settings

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	records := []Record{
		{},
		{
			"backgroundColor":  "#000000",
			"hourColor":        "#FFFFFF",
			"handColor":        "#FF0000",
			"dotColor":         "#00FF00",
			"handOutlineColor": "#0000FF",
		},
		{
			"backgroundColor": "#112233",
			"vibeToggle":      true,
			"hourFormat":      float64(24),
			"vibeStartTime":   "22:00",
			"dateToggle":      false,
			"note":            nil,
			"unicode":         "héllo wörld ✓",
		},
	}

	for _, rec := range records {
		text, err := Encode(rec)
		require.NoError(t, err)

		got, err := Decode(text)
		require.NoError(t, err)
		assert.Equal(t, rec, got)
	}
}

func TestDecode_RejectsNonObjects(t *testing.T) {
	for _, text := range []string{"", "null", "[]", `"x"`, "12", "{", `{"a":1} trailing`} {
		_, err := Decode(text)
		assert.Error(t, err, "Decode(%q)", text)
	}

	_, err := Decode("null")
	assert.ErrorIs(t, err, ErrNotObject)
}

func TestFieldText(t *testing.T) {
	rec := Record{
		"s":   "#FF0000",
		"b":   true,
		"n":   float64(7),
		"f":   1.5,
		"nil": nil,
	}

	assert.Equal(t, "#FF0000", rec.FieldText("s"))
	assert.Equal(t, "true", rec.FieldText("b"))
	assert.Equal(t, "7", rec.FieldText("n"))
	assert.Equal(t, "1.5", rec.FieldText("f"))
	assert.Equal(t, "null", rec.FieldText("nil"))
	assert.Equal(t, "undefined", rec.FieldText("missing"))
}

func TestFieldText_NumbersFollowScriptFormatting(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{-12, "-12"},
		{0.000001, "0.000001"},
		{1e-7, "1e-7"},
		{1.5e-7, "1.5e-7"},
		{1e20, "100000000000000000000"},
		{1e21, "1e+21"},
		{-2.5e22, "-2.5e+22"},
		{1.7976931348623157e308, "1.7976931348623157e+308"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Record{"n": tt.in}.FieldText("n"), "value %g", tt.in)
	}
}

func TestEncodeURIComponent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"#000000", "%23000000"},
		{"abcXYZ019", "abcXYZ019"},
		{"-_.!~*'()", "-_.!~*'()"},
		{"a b+c", "a%20b%2Bc"},
		{"a&b=c?d/e", "a%26b%3Dc%3Fd%2Fe"},
		{"é", "%C3%A9"},
		{"{\"a\":1}", "%7B%22a%22%3A1%7D"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, EncodeURIComponent(tt.in), "EncodeURIComponent(%q)", tt.in)
	}
}

func TestDecodeURIComponent(t *testing.T) {
	got, err := DecodeURIComponent("%7B%22a%22%3A%22%23FF0000%22%7D")
	require.NoError(t, err)
	assert.Equal(t, `{"a":"#FF0000"}`, got)

	got, err = DecodeURIComponent("a+b%20c")
	require.NoError(t, err)
	assert.Equal(t, "a+b c", got)

	_, err = DecodeURIComponent("%zz")
	assert.Error(t, err)

	_, err = DecodeURIComponent("%C3")
	assert.ErrorIs(t, err, ErrInvalidUTF8)

	in := "héllo #1 & {json}"
	got, err = DecodeURIComponent(EncodeURIComponent(in))
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestLayoutURL_NoRecord(t *testing.T) {
	assert.Equal(t,
		"http://dustinhu.com/projects/library/MacroClock/Configuration.html",
		ClassicLayout(DefaultHost).URL(nil))
	assert.Equal(t,
		"http://dustinhu.com/projects/library/MacroClock/ConfigurationBeta.html",
		BetaLayout(DefaultHost).URL(nil))
}

func TestLayoutURL_ClassicScenario(t *testing.T) {
	rec := Record{
		"backgroundColor":  "#000000",
		"hourColor":        "#FFFFFF",
		"handColor":        "#FF0000",
		"dotColor":         "#00FF00",
		"handOutlineColor": "#0000FF",
	}

	want := "http://dustinhu.com/projects/library/MacroClock/Configuration.html" +
		"?&backgroundColor=%23000000&hourColor=%23FFFFFF&handColor=%23FF0000" +
		"&dotColor=%2300FF00&handOutlineColor=%230000FF"
	assert.Equal(t, want, ClassicLayout(DefaultHost).URL(rec))
}

func TestLayoutURL_BetaFieldOrder(t *testing.T) {
	rec := Record{
		"backgroundColor":  "#000000",
		"hourColor":        "#FFFFFF",
		"handColor":        "#FF0000",
		"dotColor":         "#00FF00",
		"handOutlineColor": "#0000FF",
		"vibeToggle":       true,
		"hourFormat":       "24",
		"vibeStartTime":    "22:00",
		"vibeEndTime":      "07:00",
		"dateToggle":       false,
		"digTimeToggle":    "1",
		"btAlertToggle":    "0",
		"ignored":          "not a layout field",
	}

	want := "http://dustinhu.com/projects/library/MacroClock/ConfigurationBeta.html" +
		"?&backgroundColor=%23000000&hourColor=%23FFFFFF&handColor=%23FF0000" +
		"&dotColor=%2300FF00&handOutlineColor=%230000FF" +
		"&vibeToggle=true&hourFormat=24&vibeStartTime=22%3A00&vibeEndTime=07%3A00" +
		"&dateToggle=false&digTimeToggle=1&btAlertToggle=0"
	assert.Equal(t, want, BetaLayout(DefaultHost).URL(rec))
}

func TestLayoutURL_EmptyRecordStillAddsQuery(t *testing.T) {
	got := ClassicLayout("localhost:7790/web").URL(Record{})
	assert.Equal(t,
		"http://localhost:7790/web/Configuration.html?&backgroundColor=undefined&hourColor=undefined"+
			"&handColor=undefined&dotColor=undefined&handOutlineColor=undefined", got)
}

func TestLayoutByName(t *testing.T) {
	l, err := LayoutByName("", "https://example.com/mc/")
	require.NoError(t, err)
	assert.Equal(t, LayoutClassic, l.Name)
	assert.Equal(t, "https://example.com/mc/Configuration.html", l.BaseURL)

	l, err = LayoutByName("BETA", "")
	require.NoError(t, err)
	assert.Equal(t, LayoutBeta, l.Name)
	assert.Len(t, l.Fields, 12)

	_, err = LayoutByName("retro", "")
	assert.Error(t, err)
}

func TestLayoutFieldsAreIndependentCopies(t *testing.T) {
	a := ClassicLayout("")
	a.Fields[0] = "mutated"
	assert.Equal(t, "backgroundColor", ClassicLayout("").Fields[0])
}
