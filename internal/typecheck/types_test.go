package typecheck

import (
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/promptc/internal/ir"
)

func TestTypeString(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{lit(1), "literal[1]"},
		{slit("x"), `literal["x"]`},
		{Literal{Value: ir.BoolLiteral(true)}, "literal[true]"},
		{Optional{Inner: Bool{}}, "(none | bool)"},
		{MakeUnion(Int{}, String{}), "(int | string)"},
		{List{Inner: Float{}}, "list[float]"},
		{ClassRef{Name: "Foo"}, "class Foo"},
		{FunctionRef{Name: "F"}, "function F"},
		{Unknown{}, "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.typ.String())
	}
}

func TestMakeUnion(t *testing.T) {
	assert.Equal(t, None{}, MakeUnion())
	assert.Equal(t, Int{}, MakeUnion(Int{}, Int{}))
	assert.Equal(t, union(lit(1), lit(2)), MakeUnion(lit(2), lit(1)))
	assert.Equal(t, union(slit("2"), lit(1)), MakeUnion(lit(1), slit("2")))
	assert.Equal(t, union(Int{}, FunctionRef{Name: "f"}), MakeUnion(FunctionRef{Name: "f"}, Int{}))
	assert.Equal(t, union(None{}, String{}), MakeUnion(Optional{Inner: String{}}))
	assert.Equal(t, union(None{}, Bool{}, Int{}), MakeUnion(MakeUnion(Int{}, None{}), Bool{}))
}

func TestAssignable(t *testing.T) {
	tests := []struct {
		name string
		dst  Type
		src  Type
		want bool
	}{
		{"unknown source", Bool{}, Unknown{}, true},
		{"unknown target", Unknown{}, Int{}, true},
		{"int literal to int", Int{}, lit(3), true},
		{"int to float", Float{}, Int{}, true},
		{"float to int", Int{}, Float{}, false},
		{"float to number", Number{}, Float{}, true},
		{"number to int", Int{}, Number{}, false},
		{"string literal to string", String{}, slit("a"), true},
		{"int literal to bool", Bool{}, lit(1), false},
		{"none to optional", Optional{Inner: Bool{}}, None{}, true},
		{"literal to optional", Optional{Inner: Bool{}}, Literal{Value: ir.BoolLiteral(false)}, true},
		{"optional to required", Bool{}, Optional{Inner: Bool{}}, false},
		{"union member", MakeUnion(Int{}, String{}), slit("a"), true},
		{"union source needs every member", String{}, MakeUnion(slit("a"), lit(1)), false},
		{"list", List{Inner: Number{}}, List{Inner: Int{}}, true},
		{"class", ClassRef{Name: "A"}, ClassRef{Name: "B"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Assignable(tt.dst, tt.src))
		})
	}
}

func TestFromIR(t *testing.T) {
	str := ir.Primitive{Kind: ir.PrimitiveString}
	tests := []struct {
		name string
		in   ir.Type
		want Type
	}{
		{"string", str, String{}},
		{"null", ir.Primitive{Kind: ir.PrimitiveNull}, None{}},
		{"image", ir.Primitive{Kind: ir.PrimitiveImage}, Unknown{}},
		{"enum", ir.Enum{Name: "Color"}, String{}},
		{"class", ir.Optional{Inner: ir.Class{Name: "Resume"}}, Optional{Inner: ClassRef{Name: "Resume"}}},
		{"list", ir.List{Inner: ir.Primitive{Kind: ir.PrimitiveInt}}, List{Inner: Int{}}},
		{"map", ir.Map{Key: str, Value: str}, Unknown{}},
		{"union with null", ir.Union{Members: []ir.Type{str, ir.Primitive{Kind: ir.PrimitiveNull}}}, union(None{}, String{})},
		{"tuple", ir.Tuple{Members: []ir.Type{str, ir.Primitive{Kind: ir.PrimitiveBool}}}, List{Inner: union(Bool{}, String{})}},
		{"constrained", ir.Constrained{Base: ir.Primitive{Kind: ir.PrimitiveFloat}}, Float{}},
		{"literal", ir.Literal{Value: ir.StringLiteral("a")}, slit("a")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromIR(tt.in))
		})
	}
}

func randomType(rng *rand.Rand, depth int) Type {
	leaves := []func() Type{
		func() Type { return Int{} },
		func() Type { return Float{} },
		func() Type { return Bool{} },
		func() Type { return String{} },
		func() Type { return None{} },
		func() Type { return Number{} },
		func() Type { return lit(rng.Int63n(4)) },
		func() Type { return slit(string(rune('a' + rng.Intn(3)))) },
		func() Type { return Literal{Value: ir.BoolLiteral(rng.Intn(2) == 0)} },
		func() Type { return ClassRef{Name: string(rune('A' + rng.Intn(3)))} },
	}
	if depth == 0 || rng.Intn(3) > 0 {
		return leaves[rng.Intn(len(leaves))]()
	}
	switch rng.Intn(3) {
	case 0:
		return List{Inner: randomType(rng, 0)}
	case 1:
		return Optional{Inner: randomType(rng, depth-1)}
	default:
		members := make([]Type, 1+rng.Intn(3))
		for i := range members {
			members[i] = randomType(rng, depth-1)
		}
		return MakeUnion(members...)
	}
}

func TestMakeUnionOrderIndependentProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("member order never changes the union and rebuilding is a no-op", prop.ForAll(
		func(seed int64) bool {
			rng := rand.New(rand.NewSource(seed))
			members := make([]Type, 1+rng.Intn(6))
			for i := range members {
				members[i] = randomType(rng, 2)
			}
			shuffled := make([]Type, len(members))
			for i, j := range rng.Perm(len(members)) {
				shuffled[i] = members[j]
			}

			u := MakeUnion(members...)
			return Equal(u, MakeUnion(shuffled...)) && Equal(u, MakeUnion(u)) && Equal(u, MakeUnion(u, u))
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}
