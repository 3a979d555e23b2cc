package transform

import (
	"testing"

	"github.com/kilupskalvis/bf2marc/internal/stripe"
	"github.com/kilupskalvis/bf2marc/internal/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// doc builds a striped document by hand: an instance with a title, two
// ISBNs and a work with a topical subject.
func doc() *stripe.Document {
	title := &stripe.Resource{
		ID: "_:t1", Blank: true,
		Types: []string{vocab.BF + "Title"},
		Props: []stripe.Property{
			{Pred: vocab.BF + "mainTitle", Objects: []stripe.Object{{Literal: &stripe.Literal{Value: "Conversion Pipelines"}}}},
			{Pred: vocab.BF + "subtitle", Objects: []stripe.Object{{Literal: &stripe.Literal{Value: "a worked example"}}}},
		},
	}
	isbn := func(v string) stripe.Object {
		return stripe.Object{Resource: &stripe.Resource{
			ID: "_:i" + v, Blank: true,
			Types: []string{vocab.BF + "Isbn"},
			Props: []stripe.Property{
				{Pred: vocab.RDFValue, Objects: []stripe.Object{{Literal: &stripe.Literal{Value: v}}}},
			},
		}}
	}
	topic := &stripe.Resource{
		ID:    "http://id.loc.gov/authorities/subjects/sh1",
		Types: []string{vocab.MADSRDF + "Topic"},
		Props: []stripe.Property{
			{Pred: vocab.MADSRDF + "authoritativeLabel", Objects: []stripe.Object{{Literal: &stripe.Literal{Value: "Cataloging"}}}},
		},
	}

	return &stripe.Document{
		Work: &stripe.Resource{
			ID:    "http://example.org/work/1",
			Types: []string{vocab.BFWork},
			Props: []stripe.Property{
				{Pred: vocab.BF + "subject", Objects: []stripe.Object{{Resource: topic}}},
			},
		},
		Instance: &stripe.Resource{
			ID:    "http://example.org/instance/1",
			Types: []string{vocab.BFInstance},
			Props: []stripe.Property{
				{Pred: vocab.BF + "identifiedBy", Objects: []stripe.Object{isbn("9780000000001"), isbn("9780000000002")}},
				{Pred: vocab.BF + "title", Objects: []stripe.Object{{Resource: title}}},
			},
		},
	}
}

func defaultEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Load("")
	require.NoError(t, err)
	return e
}

func TestTransform_DefaultRules(t *testing.T) {
	rec, err := defaultEngine(t).Transform(doc())
	require.NoError(t, err)
	require.NotNil(t, rec)

	require.Len(t, rec.ControlFields, 2)
	assert.Equal(t, "001", rec.ControlFields[0].Tag)
	assert.Equal(t, "http://example.org/instance/1", rec.ControlFields[0].Value)
	assert.Equal(t, "003", rec.ControlFields[1].Tag)

	byTag := map[string][]int{}
	for i, df := range rec.DataFields {
		byTag[df.Tag] = append(byTag[df.Tag], i)
	}

	// Two ISBNs → two 020 fields (group repetition).
	require.Len(t, byTag["020"], 2)
	assert.Equal(t, "9780000000001", rec.DataFields[byTag["020"][0]].Subfields[0].Value)
	assert.Equal(t, "9780000000002", rec.DataFields[byTag["020"][1]].Subfields[0].Value)

	require.Len(t, byTag["245"], 1)
	f245 := rec.DataFields[byTag["245"][0]]
	require.Len(t, f245.Subfields, 2)
	assert.Equal(t, "Conversion Pipelines", f245.Subfields[0].Value)
	assert.Equal(t, "a worked example", f245.Subfields[1].Value)

	require.Len(t, byTag["650"], 1)
	assert.Equal(t, "Cataloging", rec.DataFields[byTag["650"][0]].Subfields[0].Value)
}

func TestTransform_NoTitleMeansNoConversion(t *testing.T) {
	d := doc()
	d.Instance.Props = d.Instance.Props[:1] // drop bf:title

	rec, err := defaultEngine(t).Transform(d)
	require.NoError(t, err)
	assert.Nil(t, rec, "missing required title should yield an empty result, not an error")
}

func TestTransform_MalformedDocument(t *testing.T) {
	_, err := defaultEngine(t).Transform(&stripe.Document{Work: &stripe.Resource{}})
	assert.Error(t, err)

	_, err = defaultEngine(t).Transform(nil)
	assert.Error(t, err)
}

func TestTransform_ConstantSubfieldNeedsMatch(t *testing.T) {
	rules := `
[record]
leader = "     nam a22     uu 4500"

[[field]]
tag = "336"
root = "work"
  [[field.subfield]]
  code = "a"
  path = "bf:content/bf:Content/rdfs:label"
  [[field.subfield]]
  code = "2"
  value = "rdacontent"
`
	e, err := Parse([]byte(rules))
	require.NoError(t, err)

	rec, err := e.Transform(doc())
	require.NoError(t, err)
	assert.Nil(t, rec, "a field with only constant subfields must not be emitted")
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name  string
		rules string
	}{
		{"not toml", `{{{`},
		{"non-ascii leader", `[record]
leader = "     ném a22     uu 4500"`},
		{"bad tag", `[[control]]
tag = "1"
value = "x"`},
		{"bad root", `[[field]]
tag = "245"
root = "item"
  [[field.subfield]]
  code = "a"
  path = "bf:title/bf:Title/bf:mainTitle"`},
		{"even value path", `[[field]]
tag = "245"
root = "instance"
  [[field.subfield]]
  code = "a"
  path = "bf:title/bf:Title"`},
		{"odd group path", `[[field]]
tag = "245"
root = "instance"
group = "bf:title"
  [[field.subfield]]
  code = "a"
  path = "bf:mainTitle"`},
		{"wide subfield code", `[[field]]
tag = "245"
root = "instance"
  [[field.subfield]]
  code = "ab"
  path = "bf:title/bf:Title/bf:mainTitle"`},
		{"no subfields", `[[field]]
tag = "245"
root = "instance"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.rules))
			assert.Error(t, err)
		})
	}
}

func TestParse_DefaultRulesAreValid(t *testing.T) {
	e, err := Parse(defaultRules)
	require.NoError(t, err)
	assert.NotEmpty(t, e.fields)
	assert.NotEmpty(t, e.require)
}

func TestPath_Wildcard(t *testing.T) {
	rules := `
[record]
leader = "     nam a22     uu 4500"

[[field]]
tag = "700"
root = "work"
  [[field.subfield]]
  code = "a"
  path = "bf:subject/*/madsrdf:authoritativeLabel"
`
	e, err := Parse([]byte(rules))
	require.NoError(t, err)

	rec, err := e.Transform(doc())
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Len(t, rec.DataFields, 1)
	assert.Equal(t, "Cataloging", rec.DataFields[0].Subfields[0].Value)
}
