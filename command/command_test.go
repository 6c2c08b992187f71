package command

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anttex/textex/token"
)

func TestCommandZeroValueKind(t *testing.T) {
	var c Command
	assert.Equal(t, KTypeset, c.Kind, "zero value of Kind must be KTypeset")
}

func TestArithOpZeroValue(t *testing.T) {
	var op ArithOp
	assert.Equal(t, OpSet, op)
}

func TestBoxKindZeroValue(t *testing.T) {
	var bk BoxKind
	assert.Equal(t, BoxHBox, bk)
}

func TestCommandCarriesLetFields(t *testing.T) {
	rhs := token.NewCS("relax", false, token.Position{})
	c := Command{
		Kind:     KAssignLet,
		TargetCS: "foo",
		LetToken: rhs,
		Global:   true,
	}
	assert.Equal(t, "foo", c.TargetCS)
	assert.True(t, c.Global)
	assert.Equal(t, "relax", c.LetToken.Name)
}

func TestCommandCarriesGlueValueComponents(t *testing.T) {
	c := Command{
		Kind: KAssignGlue,
	}
	c.GlueValue.Value = 100
	c.GlueValue.Stretch = 10
	c.GlueValue.StretchOrder = 1
	c.GlueValue.Shrink = 5
	c.GlueValue.ShrinkOrder = 0
	assert.EqualValues(t, 100, c.GlueValue.Value)
	assert.EqualValues(t, 1, c.GlueValue.StretchOrder)
}
