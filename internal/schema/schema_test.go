package schema

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaRenderSnapshot(t *testing.T) {
	// Two sources so extensions land in another file than their base types
	disc := NewInMemoryDiscovery([]InMemorySource{
		{Name: "base", Content: mustReadFile(t, "testdata/base.graphql")},
		{Name: "extensions", Content: mustReadFile(t, "testdata/extensions.graphql")},
	})

	schema, err := Build(context.Background(), disc)
	require.NoError(t, err, "failed to build schema")

	actual := Render(schema)

	snapshotPath := filepath.Join("testdata", "schema_rendered.graphql")

	// If snapshot doesn't exist, create it
	if _, err := os.Stat(snapshotPath); os.IsNotExist(err) {
		err := os.WriteFile(snapshotPath, []byte(actual), 0644)
		require.NoError(t, err, "failed to write snapshot file")
		t.Logf("Created snapshot file: %s", snapshotPath)
		return
	}

	expected, err := os.ReadFile(snapshotPath)
	require.NoError(t, err, "failed to read snapshot file")

	if diff := cmp.Diff(string(expected), actual); diff != "" {
		t.Errorf("Rendered schema snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildFromSDLRender(t *testing.T) {
	schema, err := BuildFromSDL(`
type Query {
  dog: Dog
  pets: [Pet!]!
}

interface Pet {
  name: String
}

type Dog implements Pet {
  name(surname: Boolean = false): String
  barkVolume: Int @deprecated(reason: "quiet")
}

enum Command {
  SIT
  DOWN
}
`)
	require.NoError(t, err)

	want := `enum Command {
  SIT
  DOWN
}

type Dog implements Pet {
  name(surname: Boolean = false): String
  barkVolume: Int @deprecated(reason: "quiet")
}

interface Pet {
  name: String
}

type Query {
  dog: Dog
  pets: [Pet!]!
}
`
	if diff := cmp.Diff(want, Render(schema)); diff != "" {
		t.Errorf("Render mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderSchemaBlock(t *testing.T) {
	schema, err := BuildFromSDL(`
"""
Root "docs"
"""
schema { query: Root }
type Root {
  """Says hi."""
  hello(name: String = "you"): String
}
`)
	require.NoError(t, err)

	want := `"""
Root "docs"
"""
schema {
  query: Root
}

type Root {
  """
  Says hi.
  """
  hello(name: String = "you"): String
}
`
	assert.Equal(t, want, Render(schema))
	assert.Empty(t, Render(nil))
}

func TestBuildMergesExtensions(t *testing.T) {
	disc := NewInMemoryDiscovery([]InMemorySource{
		{Name: "base", Content: mustReadFile(t, "testdata/base.graphql")},
		{Name: "extensions", Content: mustReadFile(t, "testdata/extensions.graphql")},
	})
	schema, err := Build(context.Background(), disc)
	require.NoError(t, err)

	assert.Equal(t, "QueryRoot", schema.QueryType)
	assert.Equal(t, "", schema.MutationType)
	assert.Equal(t, "Pets and their owners.", schema.Description)

	require.NotNil(t, schema.FieldDefinition("QueryRoot", "complicatedArgs"))
	require.NotNil(t, schema.FieldDefinition("Cat", "volume"))
	assert.Equal(t, []string{"Cat", "Dog", "Human"}, schema.Types["CatOrDog"].PossibleTypes)

	var commands []string
	for _, v := range schema.Types["DogCommand"].EnumValues {
		commands = append(commands, v.Name)
	}
	assert.Equal(t, []string{"SIT", "HEEL", "DOWN", "ROLL"}, commands)

	meow := schema.FieldDefinition("Cat", "meowVolume")
	require.NotNil(t, meow)
	assert.True(t, meow.IsDeprecated)
	assert.Equal(t, "Use `volume`.", meow.DeprecationReason)

	date := schema.Types["Date"]
	require.NotNil(t, date.SpecifiedByURL)
	assert.Equal(t, "https://example.com/date", *date.SpecifiedByURL)

	onField := schema.Directives["onField"]
	require.NotNil(t, onField)
	assert.True(t, onField.IsRepeatable)
	assert.Equal(t, []string{"FIELD"}, onField.Locations)

	input := schema.Types["ComplexInput"]
	require.Len(t, input.InputFields, 3)
	assert.Equal(t, int64(3), input.InputFields[1].DefaultValue)
	assert.IsType(t, Literal(""), input.InputFields[2].DefaultValue)
}

func TestBuildFromSDLDefaultRoots(t *testing.T) {
	schema, err := BuildFromSDL(`
type Query { a: String }
type Mutation { b: String }
`)
	require.NoError(t, err)
	assert.Equal(t, "Query", schema.RootType("query"))
	assert.Equal(t, "Query", schema.RootType(""))
	assert.Equal(t, "Mutation", schema.RootType("mutation"))
	assert.Equal(t, "", schema.RootType("subscription"))
	assert.NotNil(t, schema.Types["String"], "builtin scalars are always present")
	assert.NotNil(t, schema.Directives["skip"])
}

func TestTypeRefGetNamedType(t *testing.T) {
	assert.Equal(t, "String", NonNullType(ListType(NonNullType(NamedType("String")))).GetNamedType())
	assert.Equal(t, "Dog", NamedType("Dog").GetNamedType())
	assert.Empty(t, (*TypeRef)(nil).GetNamedType())
}

func TestBuildFromSDLErrors(t *testing.T) {
	tests := []struct {
		name string
		sdl  string
		want string
	}{
		{
			name: "duplicate type",
			sdl:  "type Query { a: String }\ntype Query { b: String }",
			want: `Type "Query" is defined more than once`,
		},
		{
			name: "extension of unknown type",
			sdl:  "type Query { a: String }\nextend type Missing { b: String }",
			want: `Cannot extend type "Missing" because it is not defined`,
		},
		{
			name: "extension of another kind",
			sdl:  "type Query { a: String }\nextend interface Query { b: String }",
			want: `Cannot extend OBJECT "Query" as INTERFACE`,
		},
		{
			name: "undefined root type",
			sdl:  "schema { query: Root }\ntype Query { a: String }",
			want: `Root query type "Root" is not defined`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildFromSDL(tt.sdl)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFieldDefinition(t *testing.T) {
	schema, err := BuildFromSDL(`
type Query { dog: Dog pet: CatOrDog }
type Dog { name: String }
type Cat { name: String }
union CatOrDog = Cat | Dog
enum Size { SMALL }
`)
	require.NoError(t, err)

	tests := []struct {
		typeName, fieldName string
		want                string
	}{
		{"Query", "dog", "Dog"},
		{"Dog", "name", "String"},
		{"Dog", "__typename", "String!"},
		{"CatOrDog", "__typename", "String!"},
		{"CatOrDog", "name", ""},
		{"Size", "__typename", ""},
		{"Dog", "unknown", ""},
		{"Unknown", "name", ""},
	}
	for _, tt := range tests {
		t.Run(tt.typeName+"."+tt.fieldName, func(t *testing.T) {
			f := schema.FieldDefinition(tt.typeName, tt.fieldName)
			if tt.want == "" {
				assert.Nil(t, f)
				return
			}
			require.NotNil(t, f)
			assert.Equal(t, tt.want, f.Type.String())
		})
	}
}

func TestTypeRefEqual(t *testing.T) {
	str := NamedType("String")
	tests := []struct {
		name  string
		a, b  *TypeRef
		equal bool
	}{
		{"same named", str, NamedType("String"), true},
		{"different named", str, NamedType("Int"), false},
		{"nullability", NonNullType(str), str, false},
		{"list vs named", ListType(str), str, false},
		{"nested equal", NonNullType(ListType(NonNullType(str))), NonNullType(ListType(NonNullType(NamedType("String")))), true},
		{"nested inner nullability", ListType(NonNullType(str)), ListType(str), false},
		{"nil", nil, nil, true},
		{"nil vs named", nil, str, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, tt.a.Equal(tt.b))
			assert.Equal(t, tt.equal, tt.b.Equal(tt.a))
		})
	}
}

func TestTypeRefString(t *testing.T) {
	assert.Equal(t, "String", NamedType("String").String())
	assert.Equal(t, "String!", NonNullType(NamedType("String")).String())
	assert.Equal(t, "[String]!", NonNullType(ListType(NamedType("String"))).String())
	assert.Equal(t, "[[Int!]]", ListType(ListType(NonNullType(NamedType("Int")))).String())
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "query.graphql"), []byte("type Query { dog: Dog }"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pets", "dog.graphql"), []byte("type Dog { name: String }"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pets", "notes.txt"), []byte("not a schema"), 0o644))

	schema, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "Query", schema.QueryType)
	require.NotNil(t, schema.FieldDefinition("Dog", "name"))
}

func TestLoadEmptyDirectory(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .graphql files found")
}

func mustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err, "failed to read file: %s", path)
	return string(content)
}
