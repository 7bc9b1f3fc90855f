package model

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/dataset"
)

// 产物目录中的文件
const (
	ManifestFile    = "manifest.json"
	UserFactorsFile = "user_factors.bin"
	ItemFactorsFile = "item_factors.bin"
	UserIDsFile     = "user_ids.json"
	ItemIDsFile     = "item_ids.json"
	MoviesFile      = "movies.json"

	artifactFormatVersion = 1
)

var errUnsortedEncoder = errors.New("encoder ids are not strictly ascending")

// Manifest 描述产物目录，Load 时用于一致性校验。
type Manifest struct {
	FormatVersion int         `json:"format_version"`
	Rank          int         `json:"rank"`
	NumUsers      int         `json:"num_users"`
	NumItems      int         `json:"num_items"`
	Scale         RatingScale `json:"scale"`
	CreatedAt     time.Time   `json:"created_at"`
}

// Save 把模型写入目录 dir（不存在时创建）。
func (m *SVDModel) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("model: create artifact dir: %w", err)
	}

	manifest := Manifest{
		FormatVersion: artifactFormatVersion,
		Rank:          m.Rank,
		NumUsers:      m.NumUsers(),
		NumItems:      m.NumItems(),
		Scale:         m.Scale,
		CreatedAt:     time.Now().UTC(),
	}
	if err := writeJSON(filepath.Join(dir, ManifestFile), manifest); err != nil {
		return err
	}
	if err := writeMatrix(filepath.Join(dir, UserFactorsFile), m.UserFactors); err != nil {
		return err
	}
	if err := writeMatrix(filepath.Join(dir, ItemFactorsFile), m.ItemFactors); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, UserIDsFile), m.Users); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, ItemIDsFile), m.Items); err != nil {
		return err
	}
	movies := []dataset.Movie{}
	if m.Movies != nil {
		movies = m.Movies.Movies()
	}
	return writeJSON(filepath.Join(dir, MoviesFile), movies)
}

// Load 从目录读取模型。任何文件缺失、损坏或维度不一致都返回 INVALID_INPUT，
// 服务进程应当拒绝启动。
func Load(dir string) (*SVDModel, error) {
	var manifest Manifest
	if err := readJSON(filepath.Join(dir, ManifestFile), &manifest); err != nil {
		return nil, err
	}
	if manifest.FormatVersion != artifactFormatVersion {
		return nil, invalidArtifact("unsupported format version %d", manifest.FormatVersion)
	}
	if !manifest.Scale.Valid() {
		return nil, invalidArtifact("invalid rating scale [%v, %v]", manifest.Scale.Min, manifest.Scale.Max)
	}

	users := &IDEncoder{}
	if err := readJSON(filepath.Join(dir, UserIDsFile), users); err != nil {
		return nil, err
	}
	items := &IDEncoder{}
	if err := readJSON(filepath.Join(dir, ItemIDsFile), items); err != nil {
		return nil, err
	}
	var movies []dataset.Movie
	if err := readJSON(filepath.Join(dir, MoviesFile), &movies); err != nil {
		return nil, err
	}

	uf, err := readMatrix(filepath.Join(dir, UserFactorsFile))
	if err != nil {
		return nil, err
	}
	itf, err := readMatrix(filepath.Join(dir, ItemFactorsFile))
	if err != nil {
		return nil, err
	}

	if r, c := uf.Dims(); r != users.Len() || r != manifest.NumUsers || c != manifest.Rank {
		return nil, invalidArtifact("user factors %dx%d do not match %d users, rank %d", r, c, users.Len(), manifest.Rank)
	}
	if r, c := itf.Dims(); r != items.Len() || r != manifest.NumItems || c != manifest.Rank {
		return nil, invalidArtifact("item factors %dx%d do not match %d items, rank %d", r, c, items.Len(), manifest.Rank)
	}

	return &SVDModel{
		Rank:        manifest.Rank,
		Scale:       manifest.Scale,
		UserFactors: uf,
		ItemFactors: itf,
		Users:       users,
		Items:       items,
		Movies:      dataset.NewMovieCatalog(movies),
	}, nil
}

func invalidArtifact(format string, args ...any) error {
	return core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput, "model: invalid artifact: "+fmt.Sprintf(format, args...))
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("model: encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("model: write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", invalidArtifact("read %s", filepath.Base(path)), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", invalidArtifact("decode %s", filepath.Base(path)), err)
	}
	return nil
}

func writeMatrix(path string, m *mat.Dense) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("model: create %s: %w", filepath.Base(path), err)
	}
	w := bufio.NewWriter(f)
	if _, err := m.MarshalBinaryTo(w); err != nil {
		f.Close()
		return fmt.Errorf("model: write %s: %w", filepath.Base(path), err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("model: flush %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func readMatrix(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", invalidArtifact("open %s", filepath.Base(path)), err)
	}
	defer f.Close()

	var m mat.Dense
	if _, err := m.UnmarshalBinaryFrom(bufio.NewReader(f)); err != nil {
		return nil, fmt.Errorf("%w: %v", invalidArtifact("decode %s", filepath.Base(path)), err)
	}
	return &m, nil
}
