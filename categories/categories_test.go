package categories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassSets(t *testing.T) {
	voc := VOC()
	assert.Equal(t, 20, voc.Len())

	coco := COCO()
	assert.Equal(t, 80, coco.Len())

	name, err := voc.Name(14)
	require.NoError(t, err)
	assert.Equal(t, "person", name)

	idx, err := coco.Index("person")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestClassSetErrors(t *testing.T) {
	voc := VOC()

	_, err := voc.Name(20)
	assert.Error(t, err)

	_, err = voc.Name(-1)
	assert.Error(t, err)

	_, err = voc.Index("zebra")
	assert.Error(t, err)

	_, err = ByStyle("imagenet")
	assert.Error(t, err)
}

func TestCategoryID(t *testing.T) {
	voc := VOC()
	id, err := voc.CategoryID(0)
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	_, err = voc.CategoryID(99)
	assert.Error(t, err)
}
