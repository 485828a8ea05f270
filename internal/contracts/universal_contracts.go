package contracts

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/rxtech-lab/universal-launchpad/internal/models"
	"github.com/rxtech-lab/universal-launchpad/internal/utils"
)

const (
	ZetaChainUniversalToken = "ZetaChainUniversalToken"
	EVMUniversalToken       = "EVMUniversalToken"
	ZetaChainUniversalNFT   = "ZetaChainUniversalNFT"
	EVMUniversalNFT         = "EVMUniversalNFT"
	ERC1967Proxy            = "ERC1967Proxy"
)

var contractNames = []string{
	ZetaChainUniversalToken,
	EVMUniversalToken,
	ZetaChainUniversalNFT,
	EVMUniversalNFT,
	ERC1967Proxy,
}

//go:embed abi/*.json
var abiFS embed.FS

var ErrBytecodeMissing = errors.New("contract bytecode is not loaded")

// ContractArtifact is a parsed ABI plus creation bytecode
type ContractArtifact struct {
	Name     string
	ABI      abi.ABI
	Bytecode []byte
}

// artifactFile accepts both {"abi":[...],"bytecode":"0x.."} and foundry's {"abi":[...],"bytecode":{"object":"0x.."}}
type artifactFile struct {
	ABI      json.RawMessage `json:"abi"`
	Bytecode json.RawMessage `json:"bytecode"`
}

// Artifacts holds the contract set used for universal deployments
type Artifacts struct {
	mu        sync.RWMutex
	artifacts map[string]*ContractArtifact
}

// ContractNames returns the hub and spoke implementation names for an asset kind
func ContractNames(kind models.AssetKind) (hub string, spoke string) {
	if kind == models.AssetKindNFT {
		return ZetaChainUniversalNFT, EVMUniversalNFT
	}
	return ZetaChainUniversalToken, EVMUniversalToken
}

// LoadEmbedded parses the embedded ABIs. Bytecode must be loaded separately.
func LoadEmbedded() (*Artifacts, error) {
	a := &Artifacts{artifacts: make(map[string]*ContractArtifact)}
	for _, name := range contractNames {
		data, err := abiFS.ReadFile("abi/" + name + ".json")
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded ABI %s: %w", name, err)
		}
		parsed, err := abi.JSON(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse embedded ABI %s: %w", name, err)
		}
		a.artifacts[name] = &ContractArtifact{Name: name, ABI: parsed}
	}
	return a, nil
}

// NewArtifacts builds a set from already parsed artifacts
func NewArtifacts(artifacts ...*ContractArtifact) *Artifacts {
	a := &Artifacts{artifacts: make(map[string]*ContractArtifact)}
	for _, artifact := range artifacts {
		a.artifacts[artifact.Name] = artifact
	}
	return a
}

// LoadFromDirectory reads <dir>/<Name>.json for every known contract and stores its bytecode.
// An ABI in the file replaces the embedded one. Missing files are skipped; the count of loaded files is returned.
func (a *Artifacts) LoadFromDirectory(dir string) (int, error) {
	loaded := 0
	for _, name := range contractNames {
		path := filepath.Join(dir, name+".json")
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return loaded, fmt.Errorf("failed to read artifact %s: %w", path, err)
		}
		artifact, err := parseArtifact(name, data)
		if err != nil {
			return loaded, err
		}

		a.mu.Lock()
		if existing, ok := a.artifacts[name]; ok && len(artifact.ABI.Methods) == 0 && artifact.ABI.Constructor.Inputs == nil {
			artifact.ABI = existing.ABI
		}
		a.artifacts[name] = artifact
		a.mu.Unlock()
		loaded++
	}
	return loaded, nil
}

// Get returns the artifact by name
func (a *Artifacts) Get(name string) (*ContractArtifact, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	artifact, ok := a.artifacts[name]
	if !ok {
		return nil, fmt.Errorf("unknown contract %s", name)
	}
	return artifact, nil
}

// Deployable returns the artifact only when its bytecode is available
func (a *Artifacts) Deployable(name string) (*ContractArtifact, error) {
	artifact, err := a.Get(name)
	if err != nil {
		return nil, err
	}
	if len(artifact.Bytecode) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrBytecodeMissing, name)
	}
	return artifact, nil
}

func parseArtifact(name string, data []byte) (*ContractArtifact, error) {
	var file artifactFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s artifact: %w", name, err)
	}

	artifact := &ContractArtifact{Name: name}
	if len(file.ABI) > 0 {
		parsed, err := abi.JSON(bytes.NewReader(file.ABI))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s ABI: %w", name, err)
		}
		artifact.ABI = parsed
	}

	bytecode, err := bytecodeString(file.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s bytecode: %w", name, err)
	}
	artifact.Bytecode, err = utils.DecodeBytecode(bytecode)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s bytecode: %w", name, err)
	}
	return artifact, nil
}

func bytecodeString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", errors.New("bytecode field is missing")
	}
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain, nil
	}
	var foundry struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(raw, &foundry); err != nil {
		return "", err
	}
	return foundry.Object, nil
}
