package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompress(t *testing.T) {
	got := Compress(Mk("a", "", "b", FieldFragment{Path: "x"}, "c", Text("d")))
	assert.Equal(t, Fragments{Text("ab"), FieldFragment{Path: "x"}, Text("cd")}, got)
	assert.Empty(t, Compress(Mk("")))
}

func TestFragmentsString(t *testing.T) {
	tests := []struct {
		name string
		in   Fragments
		want string
	}{
		{"text and field", Mk(FieldFragment{Path: "a.b"}, " > 1"), "a.b > 1"},
		{"parameter", Mk(ParameterFragment{Path: "p"}), "$p"},
		{"count", Mk(AggregateFragment{Function: "count"}), "count()"},
		{"sum over join", Mk(AggregateFragment{Function: "sum", StructPath: "j", E: Mk(FieldFragment{Path: "j.x"})}), "j.sum(j.x)"},
		{"trunc", Mk(DialectFragment{Function: "trunc", E: Mk(FieldFragment{Path: "t"}), Units: "month"}), "trunc(t, month)"},
		{"cast", Mk(DialectFragment{Function: "cast", E: Mk("@2020")}), "cast(@2020)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.String())
		})
	}
}

func TestMkRejectsUnknownParts(t *testing.T) {
	assert.Panics(t, func() { Mk(42) })
}

func TestFragmentsJSON(t *testing.T) {
	in := Mk("(", FieldFragment{Path: "a"}, " + ", ParameterFragment{Path: "p"}, ")",
		AggregateFragment{Function: "sum", E: Mk(FieldFragment{Path: "x"})},
		DialectFragment{Function: "cast", E: Mk("'2020-01-01'"), ValueType: TypeTimestamp})

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `{"type":"field","path":"a"}`)

	var out Fragments
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	var nothing Fragments
	require.NoError(t, json.Unmarshal([]byte("null"), &nothing))
	assert.Nil(t, nothing)

	assert.Error(t, json.Unmarshal([]byte(`[{"type":"bogus"}]`), &nothing))
}

func TestStructRefJSON(t *testing.T) {
	data, err := json.Marshal(RefByName("flights"))
	require.NoError(t, err)
	assert.Equal(t, `"flights"`, string(data))

	var ref StructRef
	require.NoError(t, json.Unmarshal(data, &ref))
	assert.Equal(t, RefByName("flights"), ref)

	data, err = json.Marshal(RefToDef(ErrorStructDef()))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &ref))
	assert.True(t, ref.IsDef())
	assert.True(t, IsErrorStructDef(ref.Def))
}

func TestSegmentFieldJSON(t *testing.T) {
	seg := Segment{Type: SegmentGrouping, Fields: []SegmentField{
		FieldRef("carrier"),
		FieldDecl(FieldDef{Name: "c", Type: TypeNumber, Aggregate: true, Expression: Mk(AggregateFragment{Function: "count"})}),
	}}
	data, err := json.Marshal(seg)
	require.NoError(t, err)

	var out Segment
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, []string{"carrier", "c"}, out.FieldNames())
	assert.True(t, out.Fields[1].IsAggregate())
}
