package i18n

import (
	"os"
	"path/filepath"
	"strings"

	"CompanionGuard/pkg/crisis"

	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// CatalogLoader 接收翻译后的回复目录
type CatalogLoader interface {
	LoadCatalog(data []byte, filename string) error
}

var _ CatalogLoader = (*crisis.Responder)(nil)

// LoadCatalogs 加载目录下的所有 *.json 语言文件（文件名即语言标签，如 es.json）。
// 单个文件失败只记日志，返回成功加载的数量
func LoadCatalogs(loader CatalogLoader, dir string, logger *zap.Logger) (int, error) {
	if dir == "" {
		return 0, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return 0, err
	}
	loaded := 0
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			logger.Warn("read catalog failed", zap.String("file", f), zap.Error(err))
			continue
		}
		if err := loader.LoadCatalog(data, filepath.Base(f)); err != nil {
			logger.Warn("load catalog failed", zap.String("file", f), zap.Error(err))
			continue
		}
		loaded++
	}
	return loaded, nil
}

// Negotiate 返回按优先级排序的语言标签。显式的 lang 参数优先，其次是
// Accept-Language 头，无效标签被忽略
func Negotiate(explicit, acceptLanguage string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(tag language.Tag) {
		s := tag.String()
		if tag == language.Und || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if tag, err := language.Parse(explicit); err == nil {
			add(tag)
		}
	}
	if acceptLanguage != "" {
		tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
		if err == nil {
			for _, t := range tags {
				add(t)
			}
		}
	}
	return out
}
