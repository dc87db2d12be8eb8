package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSchema(t *testing.T) {
	valid := []string{
		"",
		"   ",
		"age:int",
		"name:string,age:int",
		"start_date:date, is_active:bool",
		"price:float",
		"NAME : STRING",
	}
	for _, schema := range valid {
		assert.NoError(t, ValidateSchema(schema), "schema %q", schema)
	}

	invalid := []string{
		"username",            // no type
		":int",                // no name
		"price:currency",      // unknown type
		"a:int,a:string",      // duplicate name
		"start_date:date;end", // wrong separator leaks into the name
	}
	for _, schema := range invalid {
		assert.Error(t, ValidateSchema(schema), "schema %q", schema)
	}
}

func TestDeclaredParams(t *testing.T) {
	specs := DeclaredParams("start_date:date, end_date:date ,limit:int")
	require.Len(t, specs, 3)
	assert.Equal(t, ParamSpec{Name: "start_date", Type: TypeDate}, specs[0])
	assert.Equal(t, ParamSpec{Name: "end_date", Type: TypeDate}, specs[1])
	assert.Equal(t, ParamSpec{Name: "limit", Type: TypeInt}, specs[2])
}

func TestDeclaredParamsEmptySchema(t *testing.T) {
	assert.Empty(t, DeclaredParams(""))
	assert.Empty(t, DeclaredParams("   "))
}

func TestDeclaredParamsBareNameTolerated(t *testing.T) {
	specs := DeclaredParams("username")
	require.Len(t, specs, 1)
	assert.Equal(t, ParamSpec{Name: "username", Type: TypeString}, specs[0])
}

func TestBindOrdering(t *testing.T) {
	declared := []ParamSpec{{Name: "x", Type: TypeInt}, {Name: "y", Type: TypeInt}}
	supplied := map[string]any{"x": 1, "y": 2}

	bound, values, err := Bind("SELECT * FROM t WHERE a=:x AND b=:y", declared, supplied, QuestionPlaceholder)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE a=? AND b=?", bound)
	assert.Equal(t, []any{int64(1), int64(2)}, values)
}

func TestBindOutOfOrderOccurrences(t *testing.T) {
	// The marker order follows the text, not the declaration; each
	// marker must still pair with its own value.
	declared := []ParamSpec{{Name: "x", Type: TypeInt}, {Name: "y", Type: TypeInt}}
	supplied := map[string]any{"x": 1, "y": 2}

	_, values, err := Bind("SELECT * FROM t WHERE b=:y AND a=:x", declared, supplied, QuestionPlaceholder)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), int64(1)}, values)
}

func TestBindDuplicateOccurrences(t *testing.T) {
	declared := []ParamSpec{{Name: "id", Type: TypeInt}}
	supplied := map[string]any{"id": 7}

	bound, values, err := Bind("SELECT * FROM t WHERE a=:id OR b=:id", declared, supplied, QuestionPlaceholder)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE a=? OR b=?", bound)
	assert.Equal(t, []any{int64(7), int64(7)}, values)
}

func TestBindMissingParameter(t *testing.T) {
	declared := []ParamSpec{{Name: "x", Type: TypeInt}, {Name: "y", Type: TypeInt}}
	supplied := map[string]any{"x": 1}

	bound, values, err := Bind("SELECT * FROM t WHERE a=:x AND b=:y", declared, supplied, QuestionPlaceholder)
	require.Error(t, err)

	var missing *MissingParameterError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "y", missing.Name)
	assert.Empty(t, bound)
	assert.Nil(t, values)
}

func TestBindMissingWhenNameUnusedInText(t *testing.T) {
	// Declared names need values even when the SQL never references
	// them.
	declared := []ParamSpec{{Name: "unused", Type: TypeString}}
	_, _, err := Bind("SELECT 1", declared, map[string]any{}, QuestionPlaceholder)

	var missing *MissingParameterError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "unused", missing.Name)
}

func TestBindIdempotent(t *testing.T) {
	declared := []ParamSpec{{Name: "id", Type: TypeInt}}
	supplied := map[string]any{"id": 3}

	b1, v1, err1 := Bind("SELECT * FROM t WHERE id=:id", declared, supplied, QuestionPlaceholder)
	b2, v2, err2 := Bind("SELECT * FROM t WHERE id=:id", declared, supplied, QuestionPlaceholder)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, b1, b2)
	assert.Equal(t, v1, v2)
}

func TestBindWordBoundary(t *testing.T) {
	// :id must not swallow :id_ext, and undeclared names stay
	// untouched.
	declared := []ParamSpec{{Name: "id", Type: TypeInt}, {Name: "id_ext", Type: TypeInt}}
	supplied := map[string]any{"id": 1, "id_ext": 2}

	bound, values, err := Bind("SELECT * FROM t WHERE a=:id_ext AND b=:id", declared, supplied, QuestionPlaceholder)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE a=? AND b=?", bound)
	assert.Equal(t, []any{int64(2), int64(1)}, values)
}

func TestBindUndeclaredReferenceLeftAlone(t *testing.T) {
	bound, values, err := Bind("SELECT * FROM t WHERE a=:other", nil, map[string]any{}, QuestionPlaceholder)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE a=:other", bound)
	assert.Empty(t, values)
}

func TestBindNamedOrdinalPlaceholders(t *testing.T) {
	declared := []ParamSpec{{Name: "x", Type: TypeInt}, {Name: "y", Type: TypeInt}}
	supplied := map[string]any{"x": 1, "y": 2}

	bound, _, err := Bind("SELECT * FROM t WHERE a=:x AND b=:y", declared, supplied, NamedOrdinalPlaceholder)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE a=@p1 AND b=@p2", bound)
}

func TestBindRejectsUnconvertibleValue(t *testing.T) {
	declared := []ParamSpec{{Name: "age", Type: TypeInt}}
	_, _, err := Bind("SELECT * FROM t WHERE age=:age", declared, map[string]any{"age": "not a number"}, QuestionPlaceholder)

	var paramErr *ParameterError
	require.ErrorAs(t, err, &paramErr)
}

func TestCoerceValue(t *testing.T) {
	// JSON delivers numbers as float64.
	v, err := CoerceValue(float64(42), TypeInt)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	_, err = CoerceValue(float64(42.5), TypeInt)
	assert.Error(t, err)

	v, err = CoerceValue("3.25", TypeFloat)
	require.NoError(t, err)
	assert.Equal(t, 3.25, v)

	v, err = CoerceValue("true", TypeBool)
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = CoerceValue("2024-05-01", TypeDate)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), v)

	_, err = CoerceValue("yesterday", TypeDate)
	assert.Error(t, err)

	v, err = CoerceValue(float64(5), TypeString)
	require.NoError(t, err)
	assert.Equal(t, "5", v)
}
