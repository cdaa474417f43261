package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/aretw0/flowboard/pkg/ports"
)

// SealedType is the node type of the single node a sealed document is stored as.
const SealedType = "encrypted"

const sealedNodeID = "__sealed__"

var (
	// ErrNotSealed is returned when a stored flow is plain although encryption is on.
	ErrNotSealed = errors.New("flow is not sealed")
	// ErrUnseal is returned when no configured key opens a sealed flow.
	ErrUnseal = errors.New("no key opens the sealed flow")
)

type sealedData struct {
	Ciphertext string `json:"ciphertext"`
}

type encryptionMiddleware struct {
	next ports.FlowRepository
	// keys[0] seals; every key is tried when opening.
	keys []cipher.AEAD
}

// NewEncryption returns a middleware that seals documents with AES-256-GCM.
// The agent id is bound to the ciphertext, so a sealed flow cannot be moved
// to another agent. Fallback keys are only used to open flows sealed before
// a key rotation.
func NewEncryption(active []byte, fallbacks ...[]byte) (Middleware, error) {
	keys := make([]cipher.AEAD, 0, 1+len(fallbacks))
	for i, k := range append([][]byte{active}, fallbacks...) {
		if len(k) != 32 {
			return nil, fmt.Errorf("encryption key %d: want 32 bytes, got %d", i, len(k))
		}
		block, err := aes.NewCipher(k)
		if err != nil {
			return nil, err
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, err
		}
		keys = append(keys, aead)
	}
	return func(next ports.FlowRepository) ports.FlowRepository {
		return &encryptionMiddleware{next: next, keys: keys}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, agentID string, doc *domain.FlowDocument) error {
	plain, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal flow: %w", err)
	}

	aead := m.keys[0]
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to read nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, plain, []byte(agentID))

	data, err := json.Marshal(sealedData{Ciphertext: base64.StdEncoding.EncodeToString(sealed)})
	if err != nil {
		return err
	}
	return m.next.Save(ctx, agentID, &domain.FlowDocument{
		Nodes: []domain.NodeDocument{{ID: sealedNodeID, Type: SealedType, Data: data}},
		Edges: []domain.EdgeDocument{},
	})
}

func (m *encryptionMiddleware) Load(ctx context.Context, agentID string) (*domain.FlowDocument, error) {
	stored, err := m.next.Load(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if len(stored.Nodes) != 1 || stored.Nodes[0].Type != SealedType {
		return nil, fmt.Errorf("agent %s: %w", agentID, ErrNotSealed)
	}

	var data sealedData
	if err := json.Unmarshal(stored.Nodes[0].Data, &data); err != nil {
		return nil, fmt.Errorf("agent %s: bad sealed node: %w", agentID, err)
	}
	sealed, err := base64.StdEncoding.DecodeString(data.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("agent %s: bad ciphertext encoding: %w", agentID, err)
	}

	plain, err := m.open(sealed, []byte(agentID))
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", agentID, err)
	}
	var doc domain.FlowDocument
	if err := json.Unmarshal(plain, &doc); err != nil {
		return nil, fmt.Errorf("agent %s: failed to unmarshal unsealed flow: %w", agentID, err)
	}
	return &doc, nil
}

func (m *encryptionMiddleware) open(sealed, agentID []byte) ([]byte, error) {
	for _, aead := range m.keys {
		n := aead.NonceSize()
		if len(sealed) < n {
			return nil, ErrUnseal
		}
		if plain, err := aead.Open(nil, sealed[:n], sealed[n:], agentID); err == nil {
			return plain, nil
		}
	}
	return nil, ErrUnseal
}

func (m *encryptionMiddleware) Delete(ctx context.Context, agentID string) error {
	return m.next.Delete(ctx, agentID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
