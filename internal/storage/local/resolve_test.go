package local

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		baseDir string
		path    string
		want    string
		wantErr bool
	}{
		{name: "bare name under dot", baseDir: ".", path: "all.csv", want: "all.csv"},
		{name: "nested under dot", baseDir: ".", path: "bias_data/all.csv", want: filepath.Join("bias_data", "all.csv")},
		{name: "filesystem root", baseDir: "/", path: "all.csv", want: "/all.csv"},
		{name: "absolute base", baseDir: "/srv/mbfc", path: "out.csv", want: "/srv/mbfc/out.csv"},
		{name: "parent escape", baseDir: "/srv/mbfc", path: "../etc/passwd", wantErr: true},
		{name: "dotdot prefixed name stays inside", baseDir: "/srv/mbfc", path: "..results.csv", want: "/srv/mbfc/..results.csv"},
		{name: "base itself", baseDir: "/srv/mbfc", path: ".", wantErr: true},
		{name: "blank", baseDir: ".", path: " ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := (&BlobStore{baseDir: tt.baseDir}).resolve(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tt.want), got)
		})
	}
}
