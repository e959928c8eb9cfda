package ledger

import (
	"fmt"
	"sync"

	"filippo.io/edwards25519"
	"github.com/gagliardetto/solana-go"
)

// Signer authorizes debits from accounts held by one owner. The interface is
// sealed: only User and Program.Sign produce signers.
type Signer interface {
	authorizes(reg *Registry, owner solana.PublicKey) bool
}

type userSigner struct {
	key solana.PublicKey
}

// User is a transaction-level signer for key. Callers must have verified the
// key's signature before handing it to the ledger. A user signer never
// authorizes an off-curve (program derived) owner.
func User(key solana.PublicKey) Signer {
	return userSigner{key: key}
}

func (s userSigner) authorizes(_ *Registry, owner solana.PublicKey) bool {
	return s.key.Equals(owner) && IsOnCurve(owner)
}

// IsOnCurve reports whether key is a valid ed25519 point and so may have a
// private key.
func IsOnCurve(key solana.PublicKey) bool {
	_, err := new(edwards25519.Point).SetBytes(key[:])
	return err == nil
}

// Program is the capability to authorize as addresses derived from a
// program id. It is handed out once by a ledger's Registry.
type Program struct {
	id  solana.PublicKey
	reg *Registry
}

// ID returns the program id.
func (p *Program) ID() solana.PublicKey { return p.id }

// Sign returns a signer for the address CreateProgramAddress(seeds, id).
// The seeds must include the bump.
func (p *Program) Sign(seeds ...[]byte) Signer {
	cp := make([][]byte, len(seeds))
	for i, s := range seeds {
		cp[i] = append([]byte(nil), s...)
	}
	return programSigner{program: p, seeds: cp}
}

type programSigner struct {
	program *Program
	seeds   [][]byte
}

func (s programSigner) authorizes(reg *Registry, owner solana.PublicKey) bool {
	if s.program == nil || s.program.reg != reg || reg == nil {
		return false
	}
	addr, err := solana.CreateProgramAddress(s.seeds, s.program.id)
	if err != nil {
		return false
	}
	return addr.Equals(owner)
}

// Registry tracks which program ids have been claimed on a ledger.
type Registry struct {
	mu      sync.Mutex
	claimed map[solana.PublicKey]*Program
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{claimed: make(map[solana.PublicKey]*Program)}
}

// Claim hands out the Program capability for id exactly once.
func (r *Registry) Claim(id solana.PublicKey) (*Program, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id.IsZero() {
		return nil, fmt.Errorf("claim program: zero program id")
	}
	if _, ok := r.claimed[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrProgramClaimed, id)
	}
	p := &Program{id: id, reg: r}
	r.claimed[id] = p
	return p, nil
}
