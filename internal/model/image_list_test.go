package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageList_ValueAndScan(t *testing.T) {
	v, err := ImageList{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v, "空列表应落库为 NULL")

	v, err = ImageList{"https://a.example.com/1.jpg", "https://a.example.com/2.jpg"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"https://a.example.com/1.jpg","https://a.example.com/2.jpg"}`, v)

	var l ImageList
	require.NoError(t, l.Scan([]byte(`{"https://a.example.com/1.jpg","https://a.example.com/2.jpg"}`)))
	assert.Equal(t, ImageList{"https://a.example.com/1.jpg", "https://a.example.com/2.jpg"}, l)

	require.NoError(t, l.Scan("{}"))
	assert.Nil(t, l)

	require.NoError(t, l.Scan(nil))
	assert.Nil(t, l)
}

func TestImageList_Operations(t *testing.T) {
	base := ImageList{"a", "b", "c"}

	tests := []struct {
		name    string
		op      func() (ImageList, error)
		want    ImageList
		wantErr bool
	}{
		{"头部插入", func() (ImageList, error) { return base.Insert(0, "x") }, ImageList{"x", "a", "b", "c"}, false},
		{"末尾插入", func() (ImageList, error) { return base.Insert(3, "x") }, ImageList{"a", "b", "c", "x"}, false},
		{"插入越界", func() (ImageList, error) { return base.Insert(4, "x") }, ImageList{"a", "b", "c"}, true},
		{"删除中间", func() (ImageList, error) { return base.Remove(1) }, ImageList{"a", "c"}, false},
		{"删除越界", func() (ImageList, error) { return base.Remove(-1) }, ImageList{"a", "b", "c"}, true},
		{"向后移动", func() (ImageList, error) { return base.Move(0, 2) }, ImageList{"b", "c", "a"}, false},
		{"向前移动", func() (ImageList, error) { return base.Move(2, 0) }, ImageList{"c", "a", "b"}, false},
		{"原地移动", func() (ImageList, error) { return base.Move(1, 1) }, ImageList{"a", "b", "c"}, false},
		{"移动越界", func() (ImageList, error) { return base.Move(0, 3) }, ImageList{"a", "b", "c"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrImageIndexOutOfRange)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, ImageList{"a", "b", "c"}, base, "接收者不应被修改")
		})
	}
}

func TestImageList_RemoveLastBecomesNil(t *testing.T) {
	got, err := ImageList{"a"}.Remove(0)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestImageList_AppendNormalize(t *testing.T) {
	got := ImageList{"a", " "}.Append(" b ", "")
	assert.Equal(t, ImageList{"a", "b"}, got)
	assert.Nil(t, ImageList{" ", ""}.Normalize())
	assert.Nil(t, ImageList(nil).Append())
}
