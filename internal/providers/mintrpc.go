package providers

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"

	"memescope/internal/solana"
)

// Token program IDs.
const (
	tokenProgramID     = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	token2022ProgramID = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
)

// SPL mint account layout constants. The base mint is 82 bytes; on
// Token-2022 the extension TLV region starts after the account-type
// byte at offset 165.
const (
	mintAccountSize  = 82
	extensionsOffset = 166
)

// token2022Extensions maps the on-chain extension type to its name.
var token2022Extensions = map[uint16]string{
	1:  "transferFeeConfig",
	2:  "transferFeeAmount",
	3:  "mintCloseAuthority",
	4:  "confidentialTransferMint",
	6:  "defaultAccountState",
	7:  "immutableOwner",
	8:  "memoTransfer",
	9:  "nonTransferable",
	10: "interestBearingConfig",
	11: "cpiGuard",
	12: "permanentDelegate",
	14: "transferHook",
	16: "confidentialTransferFeeConfig",
	18: "metadataPointer",
	19: "tokenMetadata",
	20: "groupPointer",
	21: "tokenGroup",
	22: "groupMemberPointer",
	23: "tokenGroupMember",
}

// dangerousExtensions can confiscate or freeze holdings outright.
var dangerousExtensions = map[string]bool{
	"permanentDelegate": true,
	"nonTransferable":   true,
	"transferHook":      true,
}

// riskyExtensions are soft flags: legitimate tokens use them, scams
// abuse them.
var riskyExtensions = map[string]bool{
	"transferFeeConfig":   true,
	"defaultAccountState": true,
	"mintCloseAuthority":  true,
}

// MintParser implements MintRPC by decoding raw mint accounts fetched
// over JSON-RPC.
type MintParser struct {
	rpc solana.RPCClient
	log zerolog.Logger
}

// NewMintParser creates a MintParser.
func NewMintParser(rpc solana.RPCClient, log zerolog.Logger) *MintParser {
	return &MintParser{
		rpc: rpc,
		log: log.With().Str("component", "mint_parser").Logger(),
	}
}

// Compile-time interface check.
var _ MintRPC = (*MintParser)(nil)

// ParseMint fetches and decodes the mint account. Infrastructure
// failures set ParseError instead of rejecting: an RPC outage must
// never look like a bad token.
func (p *MintParser) ParseMint(ctx context.Context, mint string) (*MintInfo, error) {
	acc, err := p.rpc.GetAccountInfo(ctx, mint)
	if err != nil {
		p.log.Warn().Err(err).Str("mint", mint).Msg("mint account fetch failed")
		return &MintInfo{ParseError: true}, nil
	}
	if acc == nil || len(acc.Data) < mintAccountSize {
		p.log.Warn().Str("mint", mint).Msg("mint account missing or truncated")
		return &MintInfo{ParseError: true}, nil
	}
	if acc.Owner != tokenProgramID && acc.Owner != token2022ProgramID {
		p.log.Warn().Str("mint", mint).Str("owner", acc.Owner).Msg("account not owned by a token program")
		return &MintInfo{ParseError: true}, nil
	}

	info := decodeMint(acc.Data)
	info.IsToken2022 = acc.Owner == token2022ProgramID
	if info.IsToken2022 {
		classifyExtensions(info, parseExtensionTypes(acc.Data))
	}
	return info, nil
}

// decodeMint decodes the 82-byte base mint layout:
// [0:4] mint authority COption tag, [4:36] mint authority,
// [36:44] raw supply u64 LE, [44] decimals, [45] initialized,
// [46:50] freeze authority COption tag, [50:82] freeze authority.
func decodeMint(data []byte) *MintInfo {
	info := &MintInfo{
		Decimals: int(data[44]),
	}

	rawSupply := binary.LittleEndian.Uint64(data[36:44])
	info.Supply = float64(rawSupply) / math.Pow10(info.Decimals)

	if binary.LittleEndian.Uint32(data[0:4]) == 1 {
		auth := base58.Encode(data[4:36])
		info.MintAuthority = &auth
	}
	if binary.LittleEndian.Uint32(data[46:50]) == 1 {
		auth := base58.Encode(data[50:82])
		info.FreezeAuthority = &auth
	}
	return info
}

// parseExtensionTypes walks the Token-2022 TLV region: entries of
// (type u16 LE, length u16 LE, value). A malformed entry ends the walk.
func parseExtensionTypes(data []byte) []uint16 {
	var types []uint16
	pos := extensionsOffset
	for pos+4 <= len(data) {
		extType := binary.LittleEndian.Uint16(data[pos : pos+2])
		extLen := int(binary.LittleEndian.Uint16(data[pos+2 : pos+4]))
		if extType == 0 {
			break
		}
		types = append(types, extType)
		pos += 4 + extLen
	}
	return types
}

// classifyExtensions fills the extension name lists on the info.
func classifyExtensions(info *MintInfo, types []uint16) {
	for _, t := range types {
		name, known := token2022Extensions[t]
		if !known {
			continue
		}
		info.Extensions = append(info.Extensions, name)
		switch {
		case dangerousExtensions[name]:
			info.Dangerous = append(info.Dangerous, name)
		case riskyExtensions[name]:
			info.Risky = append(info.Risky, name)
		}
	}
}
