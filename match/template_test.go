package match_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/fwojciec/legalaudit"
	"github.com/fwojciec/legalaudit/match"
	"github.com/fwojciec/legalaudit/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ legalaudit.TemplateService = (*match.TemplateService)(nil)

func templateDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("pdf:"+n), 0o644))
	}
	return dir
}

func echoReader() *mock.PDFReader {
	return &mock.PDFReader{
		ReadTextFn: func(_ context.Context, path string) (string, error) {
			return "text of " + filepath.Base(path), nil
		},
	}
}

func TestTemplateService_Info(t *testing.T) {
	t.Parallel()

	t.Run("defaults to the standard pack", func(t *testing.T) {
		t.Parallel()

		dir := templateDir(t, "PP.pdf", "TOS.pdf", "CS.pdf")
		svc := match.NewTemplateService(dir, echoReader())

		infos, err := svc.Info(context.Background(), nil)

		require.NoError(t, err)
		require.Len(t, infos, 3)
		assert.Equal(t, "PP.pdf", infos[0].Name)
		assert.Equal(t, filepath.Join(dir, "PP.pdf"), infos[0].Path)
		assert.Equal(t, int64(len("pdf:PP.pdf")), infos[0].Size)
		assert.Equal(t, "CS.pdf", infos[2].Name)
	})

	t.Run("missing template is not found", func(t *testing.T) {
		t.Parallel()

		svc := match.NewTemplateService(templateDir(t, "PP.pdf"), echoReader())

		_, err := svc.Info(context.Background(), []string{"PP.pdf", "TOS.pdf"})

		require.Error(t, err)
		assert.Equal(t, legalaudit.ENOTFOUND, legalaudit.ErrorCode(err))
		assert.Contains(t, legalaudit.ErrorMessage(err), "TOS.pdf")
	})

	t.Run("rejects names that escape the directory", func(t *testing.T) {
		t.Parallel()

		svc := match.NewTemplateService(templateDir(t), echoReader())

		for _, name := range []string{"../secret.pdf", "sub/PP.pdf", "..", ""} {
			_, err := svc.Info(context.Background(), []string{name})
			require.Error(t, err, name)
			assert.Equal(t, legalaudit.EINVALID, legalaudit.ErrorCode(err), name)
		}
	})
}

func TestTemplateService_LoadPack(t *testing.T) {
	t.Parallel()

	t.Run("keeps requested order", func(t *testing.T) {
		t.Parallel()

		dir := templateDir(t, "PP.pdf", "TOS.pdf", "CS.pdf")
		svc := match.NewTemplateService(dir, echoReader())

		p, err := svc.LoadPack(context.Background(), []string{"CS.pdf", "PP.pdf"})

		require.NoError(t, err)
		assert.Equal(t, []string{"CS.pdf", "PP.pdf"}, p.Names())
		assert.Equal(t, []string{"text of CS.pdf", "text of PP.pdf"}, p.Texts())
	})

	t.Run("reads every template", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		var read []string
		reader := &mock.PDFReader{
			ReadTextFn: func(_ context.Context, path string) (string, error) {
				mu.Lock()
				defer mu.Unlock()
				read = append(read, filepath.Base(path))
				return "", nil
			},
		}
		svc := match.NewTemplateService(templateDir(t, "PP.pdf", "TOS.pdf", "CS.pdf"), reader)

		_, err := svc.LoadPack(context.Background(), nil)

		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"PP.pdf", "TOS.pdf", "CS.pdf"}, read)
	})

	t.Run("propagates read failures", func(t *testing.T) {
		t.Parallel()

		reader := &mock.PDFReader{
			ReadTextFn: func(context.Context, string) (string, error) {
				return "", legalaudit.Errorf(legalaudit.EINVALID, "corrupt")
			},
		}
		svc := match.NewTemplateService(templateDir(t, "PP.pdf"), reader)

		_, err := svc.LoadPack(context.Background(), []string{"PP.pdf"})

		require.Error(t, err)
		assert.Equal(t, legalaudit.EINVALID, legalaudit.ErrorCode(err))
	})
}
