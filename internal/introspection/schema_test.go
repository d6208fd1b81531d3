package introspection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	schema "github.com/hanpama/fieldmerge/internal/schema"
)

func buildSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.BuildFromSDL(`
schema { query: Root }
type Root { hello: String }
`)
	require.NoError(t, err, "build schema")
	return sch
}

func TestExtendAddsMetaFields(t *testing.T) {
	sch := buildSchema(t)
	extended := Extend(sch)

	schemaField := extended.FieldDefinition("Root", "__schema")
	require.NotNil(t, schemaField)
	assert.Equal(t, "__Schema!", schemaField.Type.String())

	typeField := extended.FieldDefinition("Root", "__type")
	require.NotNil(t, typeField)
	assert.Equal(t, "__Type", typeField.Type.String())
	require.Len(t, typeField.Arguments, 1)
	assert.Equal(t, "String!", typeField.Arguments[0].Type.String())

	assert.NotNil(t, extended.FieldDefinition("Root", "hello"), "existing fields are kept")
	assert.Equal(t, "[__Type!]!", extended.FieldDefinition("__Schema", "types").Type.String())
	assert.Equal(t, "__Type", extended.FieldDefinition("__Type", "ofType").Type.String())
}

func TestExtendLeavesOriginalUntouched(t *testing.T) {
	sch := buildSchema(t)
	fields := len(sch.Types["Root"].Fields)

	_ = Extend(sch)

	assert.Len(t, sch.Types["Root"].Fields, fields)
	assert.Nil(t, sch.FieldDefinition("Root", "__schema"))
	assert.Nil(t, sch.Types["__Schema"])
}

func TestMetaTypes(t *testing.T) {
	extended := Extend(buildSchema(t))
	for _, name := range []string{"__Schema", "__Type", "__Field", "__InputValue", "__EnumValue", "__Directive", "__TypeKind", "__DirectiveLocation"} {
		assert.True(t, IsMetaType(name), name)
		assert.NotNil(t, extended.Types[name], name)
	}
	assert.False(t, IsMetaType("Root"))
	assert.Len(t, extended.Types["__TypeKind"].EnumValues, 8)
}
