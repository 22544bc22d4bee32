package chain

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	json "github.com/goccy/go-json"
	"github.com/hyblock/hyblock-contracts/pkg/cache"
	"go.uber.org/zap"
)

// Artifact is a compiled contract as emitted by Hardhat under artifacts/.
type Artifact struct {
	ContractName string
	SourceName   string
	ABI          abi.ABI
	RawABI       json.RawMessage
	Bytecode     []byte

	path string
}

// FullyQualifiedName returns "contracts/X.sol:X", the form explorers expect.
func (a *Artifact) FullyQualifiedName() string {
	return a.SourceName + ":" + a.ContractName
}

// BuildInfo is the compiler input and version for an artifact.
type BuildInfo struct {
	SolcVersion     string          `json:"solcVersion"`
	SolcLongVersion string          `json:"solcLongVersion"`
	Input           json.RawMessage `json:"input"`
}

type hardhatArtifact struct {
	Format       string          `json:"_format"`
	ContractName string          `json:"contractName"`
	SourceName   string          `json:"sourceName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`
}

type hardhatDebugFile struct {
	BuildInfo string `json:"buildInfo"`
}

// ArtifactStore loads artifacts from a Hardhat artifacts directory.
type ArtifactStore struct {
	dir    string
	cache  cache.Cache
	logger *zap.Logger
}

// NewArtifactStore creates a store rooted at dir.
func NewArtifactStore(dir string, c cache.Cache, logger *zap.Logger) (*ArtifactStore, error) {
	if dir == "" {
		return nil, errors.New("artifacts dir cannot be empty")
	}

	if c == nil {
		return nil, errors.New("cache cannot be nil")
	}

	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &ArtifactStore{dir: dir, cache: c, logger: logger}, nil
}

// Load returns the artifact for a contract name such as "MultiBetERCExp".
func (s *ArtifactStore) Load(name string) (*Artifact, error) {
	value, err := cache.GetOrLoad(s.cache, "artifact:"+name, 0, func() (interface{}, error) {
		return s.load(name)
	})
	if err != nil {
		return nil, err
	}
	return value.(*Artifact), nil
}

// BuildInfo reads the compiler input referenced by the artifact's .dbg.json.
func (s *ArtifactStore) BuildInfo(art *Artifact) (*BuildInfo, error) {
	value, err := cache.GetOrLoad(s.cache, "build-info:"+art.ContractName, 0, func() (interface{}, error) {
		return s.loadBuildInfo(art)
	})
	if err != nil {
		return nil, err
	}
	return value.(*BuildInfo), nil
}

func (s *ArtifactStore) load(name string) (*Artifact, error) {
	path, err := s.find(name)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	var hh hardhatArtifact
	err = json.Unmarshal(raw, &hh)
	if err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", path, err)
	}

	parsedABI, err := abi.JSON(bytes.NewReader(hh.ABI))
	if err != nil {
		return nil, fmt.Errorf("parse ABI for %s: %w", name, err)
	}

	if hh.Bytecode == "" || hh.Bytecode == "0x" {
		return nil, fmt.Errorf("artifact %s has no bytecode (abstract contract or interface?)", name)
	}

	bytecode, err := hexutil.Decode(hh.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("decode bytecode for %s: %w", name, err)
	}

	s.logger.Debug("artifact-loaded",
		zap.String("contract", hh.ContractName),
		zap.String("source", hh.SourceName),
		zap.Int("bytecode-bytes", len(bytecode)))

	return &Artifact{
		ContractName: hh.ContractName,
		SourceName:   hh.SourceName,
		ABI:          parsedABI,
		RawABI:       hh.ABI,
		Bytecode:     bytecode,
		path:         path,
	}, nil
}

// find looks at contracts/<Name>.sol/<Name>.json first, then anywhere under
// the directory except build-info.
func (s *ArtifactStore) find(name string) (string, error) {
	direct := filepath.Join(s.dir, "contracts", name+".sol", name+".json")
	if _, err := os.Stat(direct); err == nil {
		return direct, nil
	}

	var found string
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == "build-info" {
			return filepath.SkipDir
		}
		if !d.IsDir() && d.Name() == name+".json" {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("search artifacts: %w", err)
	}

	if found == "" {
		return "", fmt.Errorf("artifact for %q not found under %s (compile the contracts first)", name, s.dir)
	}

	return found, nil
}

func (s *ArtifactStore) loadBuildInfo(art *Artifact) (*BuildInfo, error) {
	dbgPath := strings.TrimSuffix(art.path, ".json") + ".dbg.json"

	raw, err := os.ReadFile(dbgPath)
	if err != nil {
		return nil, fmt.Errorf("read debug file: %w", err)
	}

	var dbg hardhatDebugFile
	err = json.Unmarshal(raw, &dbg)
	if err != nil {
		return nil, fmt.Errorf("decode debug file: %w", err)
	}

	if dbg.BuildInfo == "" {
		return nil, fmt.Errorf("debug file %s has no buildInfo reference", dbgPath)
	}

	buildInfoPath := filepath.Join(filepath.Dir(dbgPath), filepath.FromSlash(dbg.BuildInfo))
	raw, err = os.ReadFile(buildInfoPath)
	if err != nil {
		return nil, fmt.Errorf("read build info: %w", err)
	}

	var info BuildInfo
	err = json.Unmarshal(raw, &info)
	if err != nil {
		return nil, fmt.Errorf("decode build info: %w", err)
	}

	if info.SolcLongVersion == "" || len(info.Input) == 0 {
		return nil, fmt.Errorf("build info %s is missing compiler version or input", buildInfoPath)
	}

	return &info, nil
}
