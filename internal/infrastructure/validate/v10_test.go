package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lessonBody struct {
	LessonID      string `json:"lessonId" validate:"required"`
	ContentLength int    `json:"contentLength" validate:"min=0"`
}

func TestPlaygroundV10_Struct(t *testing.T) {
	v := NewValidator()

	assert.Nil(t, v.Struct(&lessonBody{LessonID: "l1"}))

	errs := v.Struct(&lessonBody{ContentLength: -1})
	require.Len(t, errs, 2)
	assert.Equal(t, "lessonId", errs[0].Domain)
	assert.Equal(t, "lessonId is a required field", errs[0].Reason)
	assert.Equal(t, "contentLength", errs[1].Domain)
}

func TestPlaygroundV10_Empty(t *testing.T) {
	v := NewValidator()
	assert.Nil(t, v.Empty("documentId", "n1"))

	errs := v.Empty("documentId", "")
	require.Len(t, errs, 1)
	assert.Equal(t, "documentId is required", errs[0].Reason)
}
