package providers

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"memescope/internal/solana"
)

// fakeRPC serves scripted account and transaction lookups.
type fakeRPC struct {
	accounts map[string]*solana.AccountInfo
	txs      map[string]*solana.Transaction
	err      error
}

func (f *fakeRPC) GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.txs[signature], nil
}

func (f *fakeRPC) GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.accounts[pubkey], nil
}

func (f *fakeRPC) GetBalance(ctx context.Context, pubkey string) (uint64, error) {
	return 0, nil
}

func (f *fakeRPC) GetSlot(ctx context.Context) (int64, error) {
	return 1, nil
}

// mintAccount builds the 82-byte base mint layout, optionally followed
// by a Token-2022 TLV region.
func mintAccount(mintAuth, freezeAuth bool, supply uint64, decimals byte, extTypes ...uint16) []byte {
	data := make([]byte, 82)
	if mintAuth {
		binary.LittleEndian.PutUint32(data[0:4], 1)
		data[4] = 0xAA
	}
	binary.LittleEndian.PutUint64(data[36:44], supply)
	data[44] = decimals
	data[45] = 1 // initialized
	if freezeAuth {
		binary.LittleEndian.PutUint32(data[46:50], 1)
		data[50] = 0xBB
	}

	if len(extTypes) > 0 {
		// Pad to the account-type byte, then append TLV entries.
		data = append(data, make([]byte, 166-82)...)
		for _, t := range extTypes {
			entry := make([]byte, 4)
			binary.LittleEndian.PutUint16(entry[0:2], t)
			binary.LittleEndian.PutUint16(entry[2:4], 0)
			data = append(data, entry...)
		}
	}
	return data
}

func newMintParser(accounts map[string]*solana.AccountInfo) *MintParser {
	return NewMintParser(&fakeRPC{accounts: accounts}, zerolog.Nop())
}

func TestParseMintRevokedAuthorities(t *testing.T) {
	p := newMintParser(map[string]*solana.AccountInfo{
		"Mint1": {Owner: tokenProgramID, Data: mintAccount(false, false, 1_000_000_000_000, 6)},
	})

	info, err := p.ParseMint(context.Background(), "Mint1")
	if err != nil {
		t.Fatalf("ParseMint: %v", err)
	}
	if info.ParseError {
		t.Fatal("unexpected parse error")
	}
	if info.MintAuthority != nil || info.FreezeAuthority != nil {
		t.Errorf("authorities = %v/%v, want both nil", info.MintAuthority, info.FreezeAuthority)
	}
	if info.Decimals != 6 {
		t.Errorf("decimals = %d, want 6", info.Decimals)
	}
	if info.Supply != 1_000_000 {
		t.Errorf("supply = %f, want 1000000", info.Supply)
	}
	if info.IsToken2022 {
		t.Error("legacy mint flagged as token-2022")
	}
}

func TestParseMintActiveAuthorities(t *testing.T) {
	p := newMintParser(map[string]*solana.AccountInfo{
		"Mint1": {Owner: tokenProgramID, Data: mintAccount(true, true, 0, 9)},
	})

	info, err := p.ParseMint(context.Background(), "Mint1")
	if err != nil {
		t.Fatalf("ParseMint: %v", err)
	}
	if info.MintAuthority == nil || info.FreezeAuthority == nil {
		t.Fatalf("authorities = %v/%v, want both set", info.MintAuthority, info.FreezeAuthority)
	}
}

func TestParseMintToken2022Extensions(t *testing.T) {
	// Extension 12 = permanentDelegate (dangerous),
	// 1 = transferFeeConfig (risky), 18 = metadataPointer (neutral).
	p := newMintParser(map[string]*solana.AccountInfo{
		"Mint1": {Owner: token2022ProgramID, Data: mintAccount(false, false, 0, 6, 12, 1, 18)},
	})

	info, err := p.ParseMint(context.Background(), "Mint1")
	if err != nil {
		t.Fatalf("ParseMint: %v", err)
	}
	if !info.IsToken2022 {
		t.Fatal("token-2022 mint not flagged")
	}
	if len(info.Extensions) != 3 {
		t.Errorf("extensions = %v, want 3 entries", info.Extensions)
	}
	if len(info.Dangerous) != 1 || info.Dangerous[0] != "permanentDelegate" {
		t.Errorf("dangerous = %v", info.Dangerous)
	}
	if len(info.Risky) != 1 || info.Risky[0] != "transferFeeConfig" {
		t.Errorf("risky = %v", info.Risky)
	}
}

func TestParseMintInfrastructureFailureSetsParseError(t *testing.T) {
	cases := []struct {
		name string
		rpc  *fakeRPC
	}{
		{"rpc error", &fakeRPC{err: errors.New("rpc down")}},
		{"account missing", &fakeRPC{accounts: map[string]*solana.AccountInfo{}}},
		{"truncated data", &fakeRPC{accounts: map[string]*solana.AccountInfo{
			"Mint1": {Owner: tokenProgramID, Data: make([]byte, 10)},
		}}},
		{"wrong owner", &fakeRPC{accounts: map[string]*solana.AccountInfo{
			"Mint1": {Owner: "SomeOtherProgram", Data: mintAccount(false, false, 0, 6)},
		}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewMintParser(tc.rpc, zerolog.Nop())
			info, err := p.ParseMint(context.Background(), "Mint1")
			if err != nil {
				t.Fatalf("ParseMint must not error on infrastructure failure: %v", err)
			}
			if !info.ParseError {
				t.Error("ParseError not set")
			}
		})
	}
}
