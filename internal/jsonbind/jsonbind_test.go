package jsonbind

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

type color string

const (
	colorRed  color = "RED"
	colorBlue color = "BLUE"
)

type part struct {
	Label  string
	Level  string
	Secret string
}

type widget struct {
	Schema string
	Name   string
	Count  int
	Small  int32
	Big    int64
	Ratio  float32
	Weight float64
	On     bool
	Made   time.Time
	Lang   language.Tag
	Color  color
	Part   *part
	Parts  []*part
	Tags   []string
}

func testRegistry() *Registry {
	r := NewRegistry()
	r.RegisterEnum(EnumDef{
		Name:     "Color",
		Variants: []string{"RED", "BLUE"},
		Wire:     func(v string) string { return "color." + strings.ToLower(v) },
		Parse: func(s string) (string, bool) {
			switch s {
			case "color.red":
				return "RED", true
			case "color.blue":
				return "BLUE", true
			}
			return "", false
		},
	})
	r.RegisterShape(Shape{
		Name: "Part",
		New:  func() any { return &part{} },
		Fields: []Field{
			String("label", func(p *part) string { return p.Label }, func(p *part, v string) { p.Label = v }),
			String("level", func(p *part) string { return p.Level }, func(p *part, v string) { p.Level = v }),
			String("secret", func(p *part) string { return p.Secret }, func(p *part, v string) { p.Secret = v }),
		},
		Breaking: &Breaking{
			Fields: []string{"level", "secret"},
			Moves: func(field string, value any) bool {
				return field != "level" || value == "HIGH"
			},
		},
	})
	r.RegisterShape(Shape{
		Name: "Widget",
		New:  func() any { return &widget{} },
		Fields: []Field{
			String("schema", func(w *widget) string { return w.Schema }, func(w *widget, v string) { w.Schema = v }),
			String("name", func(w *widget) string { return w.Name }, func(w *widget, v string) { w.Name = v }),
			Int("count", func(w *widget) int { return w.Count }, func(w *widget, v int) { w.Count = v }),
			Int32("small", func(w *widget) int32 { return w.Small }, func(w *widget, v int32) { w.Small = v }),
			Int64("big", func(w *widget) int64 { return w.Big }, func(w *widget, v int64) { w.Big = v }),
			Float32("ratio", func(w *widget) float32 { return w.Ratio }, func(w *widget, v float32) { w.Ratio = v }),
			Float64("weight", func(w *widget) float64 { return w.Weight }, func(w *widget, v float64) { w.Weight = v }),
			Bool("on", func(w *widget) bool { return w.On }, func(w *widget, v bool) { w.On = v }),
			Time("made", func(w *widget) time.Time { return w.Made }, func(w *widget, v time.Time) { w.Made = v }),
			Locale("lang", func(w *widget) language.Tag { return w.Lang }, func(w *widget, v language.Tag) { w.Lang = v }),
			Enum("color", "Color", func(w *widget) color { return w.Color }, func(w *widget, v color) { w.Color = v }),
			Object("part", "Part", func(w *widget) *part { return w.Part }, func(w *widget, v *part) { w.Part = v }),
			ObjectList("parts", "Part", func(w *widget) []*part { return w.Parts }, func(w *widget, v []*part) { w.Parts = v }),
			StringList("tags", func(w *widget) []string { return w.Tags }, func(w *widget, v []string) { w.Tags = v }),
		},
		Versioned: &Versioned{
			Path: "schema",
			Validate: func(v string) error {
				if v != "1" {
					return &BadVersionError{BadVersion: v, MinVersion: "1", MaxVersion: "2"}
				}
				return nil
			},
		},
	})
	return r
}

func widgetCodec() Codec[widget] {
	return NewCodec[widget](testRegistry(), "Widget")
}

func fullWidget() *widget {
	return &widget{
		Schema: "1",
		Name:   "gear & <cog>",
		Count:  -42,
		Small:  7,
		Big:    1 << 40,
		Ratio:  0.1,
		Weight: 2.5,
		On:     true,
		Made:   time.Date(2024, 1, 15, 10, 30, 0, 123456700, time.UTC),
		Lang:   language.MustParse("zh-TW"),
		Color:  colorBlue,
		Part:   &part{Label: "a", Level: "HIGH", Secret: "s"},
		Parts:  []*part{{Label: "b"}, {Label: "c", Level: "LOW"}},
		Tags:   []string{"x", "y"},
	}
}

func decodeGeneric(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestRoundTrip(t *testing.T) {
	c := widgetCodec()
	in := fullWidget()

	data, err := c.Marshal(in)
	require.NoError(t, err)

	out, err := c.Unmarshal(data, Options{StrictUnknownFields: true})
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestMarshalSortsKeysAndOmitsZeroValues(t *testing.T) {
	c := widgetCodec()
	data, err := c.Marshal(&widget{Name: "a", Count: 3, Tags: []string{}})
	require.NoError(t, err)
	assert.Equal(t, `{"count":3,"name":"a","tags":[]}`, string(data))
}

func TestMarshalScalarForms(t *testing.T) {
	c := widgetCodec()
	data, err := c.Marshal(fullWidget())
	require.NoError(t, err)

	m := decodeGeneric(t, data)
	assert.Equal(t, "2024-01-15T10:30:00.1234567Z", m["made"])
	assert.Equal(t, "zh_TW", m["lang"])
	assert.Equal(t, "color.blue", m["color"])
	assert.Equal(t, 0.1, m["ratio"])
	assert.Equal(t, "gear & <cog>", m["name"])
}

func TestBreakingChangePartition(t *testing.T) {
	c := widgetCodec()

	tests := []struct {
		name        string
		part        *part
		wantPrimary map[string]any
		wantSibling map[string]any
	}{
		{
			name:        "conditional field moves",
			part:        &part{Label: "a", Level: "HIGH", Secret: "s"},
			wantPrimary: map[string]any{"label": "a"},
			wantSibling: map[string]any{"level": "HIGH", "secret": "s"},
		},
		{
			name:        "conditional field stays",
			part:        &part{Label: "a", Level: "LOW", Secret: "s"},
			wantPrimary: map[string]any{"label": "a", "level": "LOW"},
			wantSibling: map[string]any{"secret": "s"},
		},
		{
			name:        "nothing to move",
			part:        &part{Label: "a", Level: "LOW"},
			wantPrimary: map[string]any{"label": "a", "level": "LOW"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := &widget{Schema: "1", Part: tt.part}
			data, err := c.Marshal(in)
			require.NoError(t, err)

			m := decodeGeneric(t, data)
			assert.Equal(t, tt.wantPrimary, m["part"])
			if tt.wantSibling == nil {
				assert.NotContains(t, m, "part2")
			} else {
				assert.Equal(t, tt.wantSibling, m["part2"])
			}

			out, err := c.Unmarshal(data, Options{StrictUnknownFields: true})
			require.NoError(t, err)
			assert.Equal(t, in, out)
		})
	}
}

func TestBreakingChangeMergeMatchesSingleObjectEncoding(t *testing.T) {
	c := widgetCodec()

	split, err := c.Unmarshal([]byte(`{"part":{"label":"a"},"part2":{"level":"HIGH","secret":"s"}}`), Options{})
	require.NoError(t, err)
	single, err := c.Unmarshal([]byte(`{"part":{"label":"a","level":"HIGH","secret":"s"}}`), Options{})
	require.NoError(t, err)
	onlySibling, err := c.Unmarshal([]byte(`{"part2":{"label":"a","level":"HIGH","secret":"s"}}`), Options{})
	require.NoError(t, err)

	assert.Equal(t, single, split)
	assert.Equal(t, single, onlySibling)

	_, err = c.Unmarshal([]byte(`{"part2":"oops"}`), Options{})
	assert.True(t, IsBindError(err))
}

func TestUnknownFields(t *testing.T) {
	c := widgetCodec()
	data := []byte(`{"name":"a","mystery":{"deep":[1,2]}}`)

	out, err := c.Unmarshal(data, Options{})
	require.NoError(t, err)
	assert.Equal(t, "a", out.Name)

	_, err = c.Unmarshal(data, Options{StrictUnknownFields: true})
	require.Error(t, err)
	assert.True(t, IsBindError(err))
	assert.Contains(t, err.Error(), "mystery")
}

func TestEnumResolution(t *testing.T) {
	c := widgetCodec()
	tests := []struct {
		name    string
		value   string
		want    color
		wantErr bool
	}{
		{name: "variant name", value: "RED", want: colorRed},
		{name: "variant name any case", value: "Blue", want: colorBlue},
		{name: "wire value", value: "color.red", want: colorRed},
		{name: "unknown", value: "purple", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := c.Unmarshal([]byte(`{"color":"`+tt.value+`"}`), Options{})
			if tt.wantErr {
				assert.True(t, IsBindError(err), "Unmarshal() error = %v, want BindError", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Color)
		})
	}
}

func TestValueShapes(t *testing.T) {
	c := widgetCodec()
	tests := []struct {
		name    string
		json    string
		wantErr bool
	}{
		{name: "nulls dropped from lists", json: `{"tags":["a",null],"parts":[null,{"label":"x"}]}`},
		{name: "null scalar leaves zero", json: `{"name":null}`},
		{name: "number as string", json: `{"name":12}`},
		{name: "string element in object list", json: `{"parts":["x"]}`, wantErr: true},
		{name: "object element in string list", json: `{"tags":[{"a":"b"}]}`, wantErr: true},
		{name: "boolean element", json: `{"tags":[true]}`, wantErr: true},
		{name: "numeric element", json: `{"tags":[1]}`, wantErr: true},
		{name: "nested array element", json: `{"tags":[["a"]]}`, wantErr: true},
		{name: "int32 overflow", json: `{"small":3000000000}`, wantErr: true},
		{name: "fraction for int", json: `{"count":1.5}`, wantErr: true},
		{name: "string for int", json: `{"count":"3"}`, wantErr: true},
		{name: "string for bool", json: `{"on":"true"}`, wantErr: true},
		{name: "object for string", json: `{"name":{}}`, wantErr: true},
		{name: "date without fraction", json: `{"made":"2024-01-15T10:30:00Z"}`, wantErr: true},
		{name: "date with offset", json: `{"made":"2024-01-15T10:30:00.0000000+01:00"}`, wantErr: true},
		{name: "bad locale", json: `{"lang":"!!"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Unmarshal([]byte(tt.json), Options{})
			if tt.wantErr {
				assert.True(t, IsBindError(err), "Unmarshal() error = %v, want BindError", err)
				assert.False(t, IsBadVersion(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNullElementsAreDropped(t *testing.T) {
	c := widgetCodec()
	out, err := c.Unmarshal([]byte(`{"tags":["a",null,"b"],"parts":[null,{"label":"x"}]}`), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out.Tags)
	require.Len(t, out.Parts, 1)
	assert.Equal(t, "x", out.Parts[0].Label)
}

func TestMalformedJSON(t *testing.T) {
	c := widgetCodec()
	for _, in := range []string{`{`, `{"name":"a"} {}`, `[]`, ``} {
		_, err := c.Unmarshal([]byte(in), Options{})
		assert.True(t, IsBindError(err), "Unmarshal(%q) error = %v, want BindError", in, err)
	}
}

func TestVersionGate(t *testing.T) {
	c := widgetCodec()

	_, err := c.Unmarshal([]byte(`{"schema":"2","name":"bad"}`), Options{})
	require.Error(t, err)
	var bv *BadVersionError
	require.ErrorAs(t, err, &bv)
	assert.Equal(t, "2", bv.BadVersion)
	assert.False(t, IsBindError(err))

	list := []byte(`[{"schema":"1","name":"one"},{"schema":"2","name":"two"},{"schema":"1","name":"three"}]`)
	out, skipped, err := c.UnmarshalListSkipped(list, Options{})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "one", out[0].Name)
	assert.Equal(t, "three", out[1].Name)
	require.Len(t, skipped, 1)
	assert.Equal(t, "2", skipped[0].BadVersion)

	w, err := c.Unmarshal([]byte(`{"schema":"2","name":"bad"}`), Options{SkipVersionCheck: true})
	require.NoError(t, err)
	assert.Equal(t, "bad", w.Name)
}

func TestVersionGateRunsBeforeBinding(t *testing.T) {
	c := widgetCodec()
	// The count is invalid too, but the version failure must win.
	_, err := c.Unmarshal([]byte(`{"schema":"9","count":"nope"}`), Options{})
	assert.True(t, IsBadVersion(err), "Unmarshal() error = %v, want BadVersionError", err)
}

func TestUnmarshalListStructuralFailure(t *testing.T) {
	c := widgetCodec()
	_, err := c.UnmarshalList([]byte(`[{"name":"a"},"b"]`), Options{})
	assert.True(t, IsBindError(err))

	_, err = c.UnmarshalList([]byte(`{"name":"a"}`), Options{})
	assert.True(t, IsBindError(err))
}

func TestExcludeHook(t *testing.T) {
	c := widgetCodec()
	data, err := c.MarshalWith(fullWidget(), EncodeOptions{
		Exclude: func(shape, field string) bool {
			return (shape == "Widget" && field == "parts") || (shape == "Part" && field == "secret")
		},
	})
	require.NoError(t, err)

	m := decodeGeneric(t, data)
	assert.NotContains(t, m, "parts")
	assert.Equal(t, map[string]any{"level": "HIGH"}, m["part2"])
}

func TestMarshalList(t *testing.T) {
	c := widgetCodec()
	data, err := c.MarshalList([]*widget{{Name: "a"}, nil}, EncodeOptions{Indent: true})
	require.NoError(t, err)
	assert.Equal(t, "[\n  {\n    \"name\": \"a\"\n  },\n  null\n]", string(data))
}

func TestMarshalIndent(t *testing.T) {
	c := widgetCodec()
	data, err := c.MarshalIndent(&widget{Name: "a", Count: 3})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"count\": 3,\n  \"name\": \"a\"\n}", string(data))
}

func TestNewCodecPanics(t *testing.T) {
	assert.Panics(t, func() { NewCodec[widget](NewRegistry(), "Widget") })
	assert.Panics(t, func() { NewCodec[part](testRegistry(), "Widget") })

	r := NewRegistry()
	r.RegisterShape(Shape{
		Name:   "Dangling",
		New:    func() any { return &widget{} },
		Fields: []Field{Object("part", "Missing", func(w *widget) *part { return w.Part }, func(w *widget, v *part) { w.Part = v })},
	})
	assert.Panics(t, func() { NewCodec[widget](r, "Dangling") })
}
