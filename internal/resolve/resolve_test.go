package resolve

import (
	"testing"

	"github.com/jcdickinson/docnet/internal/docid"
	"github.com/jcdickinson/docnet/internal/members"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func m(kind docid.Kind, typ, name string, params ...string) members.Member {
	return members.Member{Kind: kind, DeclaringTypeName: typ, Name: name, ParameterTypeNames: params}
}

func resolveRaw(t *testing.T, raw string, idx *members.Index) Match {
	t.Helper()
	return Resolve(docid.Parse(raw), idx)
}

func TestResolve_Type(t *testing.T) {
	t.Parallel()
	widget := members.Member{Kind: docid.Type, DeclaringTypeName: "Acme.Widget"}
	idx := members.Build([]members.Member{widget})

	got := resolveRaw(t, "T:Acme.Widget", idx)
	require.True(t, got.OK(), got.Detail)
	assert.Equal(t, widget, got.Member)

	assert.Equal(t, NoCandidateType, resolveRaw(t, "T:Acme.Gadget", idx).Reason)
	assert.Equal(t, NoCandidateType, resolveRaw(t, "T:Acme.Widget`1", idx).Reason)
}

func TestResolve_GenericTypes(t *testing.T) {
	t.Parallel()
	bag0 := members.Member{Kind: docid.Type, DeclaringTypeName: "Acme.Bag"}
	bag1 := members.Member{Kind: docid.Type, DeclaringTypeName: "Acme.Bag", GenericArity: 1}
	bag2 := members.Member{Kind: docid.Type, DeclaringTypeName: "Acme.Bag", GenericArity: 2}
	idx := members.Build([]members.Member{bag0, bag1, bag2})

	assert.Equal(t, bag0, resolveRaw(t, "T:Acme.Bag", idx).Member)
	assert.Equal(t, bag1, resolveRaw(t, "T:Acme.Bag`1", idx).Member)
	assert.Equal(t, bag2, resolveRaw(t, "T:Acme.Bag`2", idx).Member)
}

func TestResolve_DuplicateTypeIsAmbiguous(t *testing.T) {
	t.Parallel()
	a := members.Member{Kind: docid.Type, DeclaringTypeName: "Acme.Widget"}
	idx := members.Build([]members.Member{a, a})

	got := resolveRaw(t, "T:Acme.Widget", idx)
	assert.Equal(t, AmbiguousOverload, got.Reason)
	assert.Equal(t, 2, got.Candidates)
}

func TestResolve_Namespace(t *testing.T) {
	t.Parallel()
	idx := members.Build([]members.Member{{Kind: docid.Type, DeclaringTypeName: "Acme.Widgets.Widget"}})

	got := resolveRaw(t, "N:Acme.Widgets", idx)
	require.True(t, got.OK())
	assert.Equal(t, docid.Namespace, got.Member.Kind)
	assert.Equal(t, "Acme.Widgets", got.Member.DeclaringTypeName)

	assert.Equal(t, NoCandidateType, resolveRaw(t, "N:Acme.Gadgets", idx).Reason)
}

func TestResolve_OverloadDisambiguation(t *testing.T) {
	t.Parallel()
	fooInt := m(docid.Method, "T", "Foo", "System.Int32")
	fooString := m(docid.Method, "T", "Foo", "System.String")
	idx := members.Build([]members.Member{fooInt, fooString})

	got := resolveRaw(t, "M:T.Foo(System.Int32)", idx)
	require.True(t, got.OK(), got.Detail)
	assert.Equal(t, fooInt, got.Member)

	got = resolveRaw(t, "M:T.Foo(System.String)", idx)
	require.True(t, got.OK(), got.Detail)
	assert.Equal(t, fooString, got.Member)

	got = resolveRaw(t, "M:T.Foo(System.Double)", idx)
	assert.Equal(t, NoCandidateMember, got.Reason)
	assert.Equal(t, 2, got.Candidates)
}

func TestResolve_GenericMethodArity(t *testing.T) {
	t.Parallel()
	bar := m(docid.Method, "T", "Bar")
	barGeneric := members.Member{
		Kind:               docid.Method,
		DeclaringTypeName:  "T",
		Name:               "Bar",
		GenericArity:       1,
		ParameterTypeNames: []string{"!!0"},
	}
	idx := members.Build([]members.Member{bar, barGeneric})

	got := resolveRaw(t, "M:T.Bar", idx)
	require.True(t, got.OK(), got.Detail)
	assert.Equal(t, bar, got.Member)

	got = resolveRaw(t, "M:T.Bar``1(``0)", idx)
	require.True(t, got.OK(), got.Detail)
	assert.Equal(t, barGeneric, got.Member)

	assert.Equal(t, NoCandidateMember, resolveRaw(t, "M:T.Bar``2(``0)", idx).Reason)
}

func TestResolve_TypeVersusMethodGenericParameter(t *testing.T) {
	t.Parallel()
	byType := m(docid.Method, "Acme.Bag`1", "Put", "!0")
	byMethod := members.Member{
		Kind:               docid.Method,
		DeclaringTypeName:  "Acme.Bag`1",
		Name:               "Put",
		GenericArity:       1,
		ParameterTypeNames: []string{"!!0"},
	}
	idx := members.Build([]members.Member{byType, byMethod})

	assert.Equal(t, byType, resolveRaw(t, "M:Acme.Bag`1.Put(`0)", idx).Member)
	assert.Equal(t, byMethod, resolveRaw(t, "M:Acme.Bag`1.Put``1(``0)", idx).Member)
	assert.Equal(t, NoCandidateMember, resolveRaw(t, "M:Acme.Bag`1.Put(``0)", idx).Reason)
}

func TestResolve_ArrayByRefAndGenericInstantiations(t *testing.T) {
	t.Parallel()
	grid := m(docid.Method, "Acme.Grid", "Fill", "System.Int32[,]", "System.String&")
	jagged := m(docid.Method, "Acme.Grid", "Fill", "System.Int32[][]", "System.String&")
	load := m(docid.Method, "Acme.Grid", "Load", "System.Collections.Generic.Dictionary<System.String, !!0>")
	load.GenericArity = 1
	idx := members.Build([]members.Member{grid, jagged, load})

	assert.Equal(t, grid, resolveRaw(t, "M:Acme.Grid.Fill(System.Int32[0:,0:],System.String@)", idx).Member)
	assert.Equal(t, jagged, resolveRaw(t, "M:Acme.Grid.Fill(System.Int32[][],System.String@)", idx).Member)

	got := resolveRaw(t, "M:Acme.Grid.Load``1(System.Collections.Generic.Dictionary{System.String,``0})", idx)
	require.True(t, got.OK(), got.Detail)
	assert.Equal(t, load, got.Member)
}

func TestResolve_Constructor(t *testing.T) {
	t.Parallel()
	ctor := m(docid.Constructor, "T", ".ctor", "System.Int32")
	dflt := m(docid.Constructor, "T", ".ctor")
	idx := members.Build([]members.Member{dflt, ctor})

	id := docid.Parse("M:T.#ctor(System.Int32)")
	require.Equal(t, docid.Constructor, id.Kind)
	require.Equal(t, ".ctor", id.MemberName)

	got := Resolve(id, idx)
	require.True(t, got.OK(), got.Detail)
	assert.Equal(t, ctor, got.Member)

	assert.Equal(t, dflt, resolveRaw(t, "M:T.#ctor", idx).Member)
	assert.Equal(t, NoCandidateMember, resolveRaw(t, "M:T.#cctor", idx).Reason)
}

func TestResolve_ParameterCountMismatch(t *testing.T) {
	t.Parallel()
	idx := members.Build([]members.Member{m(docid.Method, "T", "Foo", "System.Int32")})

	got := resolveRaw(t, "M:T.Foo(System.Int32,System.Int32)", idx)
	assert.Equal(t, ParameterCountMismatch, got.Reason)
	assert.Equal(t, 1, got.Candidates)
}

func TestResolve_DuplicateSignaturesReportFirstDeclared(t *testing.T) {
	t.Parallel()
	first := m(docid.Method, "T", "Foo", "System.Int32")
	second := m(docid.Method, "T", "Foo", "System.Int32")
	second.ReturnTypeName = "System.Void"
	idx := members.Build([]members.Member{first, second})

	got := resolveRaw(t, "M:T.Foo(System.Int32)", idx)
	assert.Equal(t, AmbiguousOverload, got.Reason)
	assert.Equal(t, first, got.Member)
	assert.Equal(t, 2, got.Candidates)
}

func TestResolve_ConversionOperatorsByReturnType(t *testing.T) {
	t.Parallel()
	toMoney := m(docid.Method, "Acme.Money", "op_Implicit", "System.Decimal")
	toMoney.ReturnTypeName = "Acme.Money"
	toCents := m(docid.Method, "Acme.Money", "op_Implicit", "System.Decimal")
	toCents.ReturnTypeName = "Acme.Cents"
	idx := members.Build([]members.Member{toMoney, toCents})

	assert.Equal(t, toCents, resolveRaw(t, "M:Acme.Money.op_Implicit(System.Decimal)~Acme.Cents", idx).Member)
	assert.Equal(t, toMoney, resolveRaw(t, "M:Acme.Money.op_Implicit(System.Decimal)~Acme.Money", idx).Member)
}

func TestResolve_Properties(t *testing.T) {
	t.Parallel()
	size := m(docid.Property, "Acme.Grid", "Size")
	item1 := m(docid.Property, "Acme.Grid", "Item", "System.Int32")
	item2 := m(docid.Property, "Acme.Grid", "Item", "System.Int32", "System.Int32")
	idx := members.Build([]members.Member{size, item1, item2})

	assert.Equal(t, size, resolveRaw(t, "P:Acme.Grid.Size", idx).Member)
	assert.Equal(t, item1, resolveRaw(t, "P:Acme.Grid.Item(System.Int32)", idx).Member)
	assert.Equal(t, item2, resolveRaw(t, "P:Acme.Grid.Item(System.Int32,System.Int32)", idx).Member)
	assert.Equal(t, AmbiguousOverload, resolveRaw(t, "P:Acme.Grid.Item", idx).Reason)
	assert.Equal(t, ParameterCountMismatch, resolveRaw(t, "P:Acme.Grid.Item(System.Int32,System.Int32,System.Int32)", idx).Reason)
}

func TestResolve_FieldsAndEvents(t *testing.T) {
	t.Parallel()
	limit := m(docid.Field, "Acme.Widget", "Max")
	resized := m(docid.Event, "Acme.Widget", "Resized")
	idx := members.Build([]members.Member{limit, resized})

	assert.Equal(t, limit, resolveRaw(t, "F:Acme.Widget.Max", idx).Member)
	assert.Equal(t, resized, resolveRaw(t, "E:Acme.Widget.Resized", idx).Member)

	got := resolveRaw(t, "E:Acme.Widget.Max", idx)
	assert.Equal(t, NoCandidateMember, got.Reason, "kind must match")
}

func TestResolve_Missing(t *testing.T) {
	t.Parallel()
	idx := members.Build([]members.Member{
		{Kind: docid.Type, DeclaringTypeName: "Acme.Widget"},
		m(docid.Method, "Acme.Widget", "Resize", "System.Int32"),
	})

	assert.Equal(t, NoCandidateMember, resolveRaw(t, "M:Acme.Widget.Shrink", idx).Reason)
	assert.Equal(t, NoCandidateType, resolveRaw(t, "M:Acme.Gadget.Resize(System.Int32)", idx).Reason)
	assert.Equal(t, NoCandidateType, resolveRaw(t, "T:Acme.Gadget", idx).Reason)
}

func TestResolve_Malformed(t *testing.T) {
	t.Parallel()
	idx := members.Build(nil)

	id := docid.Parse("X:Something")
	require.Equal(t, docid.Error, id.Kind)

	got := Resolve(id, idx)
	assert.Equal(t, MalformedDocID, got.Reason)
	assert.NotEmpty(t, got.Detail)
}

func TestResolve_Idempotent(t *testing.T) {
	t.Parallel()
	idx := members.Build([]members.Member{
		m(docid.Method, "T", "Foo", "System.Int32"),
		m(docid.Method, "T", "Foo", "System.Int32"),
		m(docid.Method, "T", "Foo", "System.String"),
	})

	for _, raw := range []string{"M:T.Foo(System.Int32)", "M:T.Foo(System.String)", "M:T.Bar", "Q:bad"} {
		id := docid.Parse(raw)
		assert.Equal(t, Resolve(id, idx), Resolve(id, idx), raw)
	}
}

func TestResolve_RoundTripThroughDocID(t *testing.T) {
	t.Parallel()
	all := []members.Member{
		{Kind: docid.Type, DeclaringTypeName: "Acme.Bag", GenericArity: 1},
		m(docid.Constructor, "Acme.Bag`1", ".ctor", "System.Collections.Generic.IEnumerable{!0}"),
		m(docid.Method, "Acme.Bag`1", "Add", "!0"),
		{Kind: docid.Method, DeclaringTypeName: "Acme.Bag`1", Name: "Map", GenericArity: 2, ParameterTypeNames: []string{"System.Func<!0, !!1>", "!!0[]&"}},
		m(docid.Method, "Acme.Bag`1", "CopyTo", "!0[,]", "System.Int32"),
		m(docid.Property, "Acme.Bag`1", "Item", "System.Int32"),
		m(docid.Property, "Acme.Bag`1", "Count"),
		m(docid.Field, "Acme.Bag`1", "Empty"),
		m(docid.Event, "Acme.Bag`1", "Changed"),
		m(docid.Method, "Acme.Bag`1+Enumerator", "MoveNext"),
		m(docid.Method, "Acme.C", "Take", "Acme.Outer`1+Inner<System.Int32>"),
	}

	for _, member := range all {
		t.Run(member.DocID(), func(t *testing.T) {
			t.Parallel()
			// Only the member itself is indexed.
			idx := members.Build([]members.Member{member})
			got := Resolve(docid.Parse(member.DocID()), idx)
			require.True(t, got.OK(), "%s: %s %s", member.DocID(), got.Reason, got.Detail)
			assert.Equal(t, member, got.Member)
		})
	}
}

func TestResolve_NestedTypeOfGenericInstantiation(t *testing.T) {
	t.Parallel()
	idx := members.Build([]members.Member{
		m(docid.Method, "Acme.C", "Take", "Acme.Outer`1+Inner<System.Int32>"),
		m(docid.Method, "Acme.C", "Take", "Acme.Outer`1+Inner<System.String>"),
	})

	got := resolveRaw(t, "M:Acme.C.Take(Acme.Outer{System.Int32}.Inner)", idx)
	require.True(t, got.OK(), "%s %s", got.Reason, got.Detail)
	assert.Equal(t, []string{"Acme.Outer`1+Inner<System.Int32>"}, got.Member.ParameterTypeNames)
	assert.Equal(t, "M:Acme.C.Take(Acme.Outer{System.Int32}.Inner)", got.Member.DocID())

	got = resolveRaw(t, "M:Acme.C.Take(Acme.Outer{System.String}.Inner)", idx)
	require.True(t, got.OK(), "%s %s", got.Reason, got.Detail)
	assert.Equal(t, []string{"Acme.Outer`1+Inner<System.String>"}, got.Member.ParameterTypeNames)
}
