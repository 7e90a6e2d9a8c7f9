package providers

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"memescope/internal/solana"
)

const lamportsPerSOLf = 1e9

// RPCTxParser implements TxParser by reconstructing transfers from a
// confirmed transaction's balance deltas. Instruction-level decoding is
// not needed: the copy trader only cares which way SOL and tokens moved
// relative to the tracked wallet.
type RPCTxParser struct {
	rpc solana.RPCClient
	log zerolog.Logger
}

// NewRPCTxParser creates an RPCTxParser.
func NewRPCTxParser(rpc solana.RPCClient, log zerolog.Logger) *RPCTxParser {
	return &RPCTxParser{
		rpc: rpc,
		log: log.With().Str("component", "tx_parser").Logger(),
	}
}

// Compile-time interface check.
var _ TxParser = (*RPCTxParser)(nil)

// ParseTransaction resolves the signature into native and token
// transfers. Returns an error when the transaction is not yet visible
// at the parse commitment; callers retry.
func (p *RPCTxParser) ParseTransaction(ctx context.Context, signature string) (*ParsedTransaction, error) {
	tx, err := p.rpc.GetTransaction(ctx, signature)
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", signature, err)
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction %s not found yet", signature)
	}
	if tx.Meta == nil || tx.Message == nil || len(tx.Message.AccountKeys) == 0 {
		return nil, fmt.Errorf("transaction %s missing metadata", signature)
	}

	parsed := &ParsedTransaction{
		Err:      tx.Meta.Err != nil,
		FeePayer: tx.Message.AccountKeys[0],
		FeeSOL:   float64(tx.Fee) / lamportsPerSOLf,
		Native:   nativeTransfers(tx),
		Tokens:   tokenTransfers(tx),
	}

	// A transaction that moves both SOL and SPL tokens is a swap for
	// the copy trader's purposes; finer classification adds nothing.
	if len(parsed.Tokens) > 0 && len(parsed.Native) > 0 {
		parsed.Type = TxTypeSwap
	}
	return parsed, nil
}

// nativeTransfers derives one-sided SOL movements from the per-account
// lamport deltas. Senders appear as From-only entries, receivers as
// To-only; the copy trader matches each side independently.
func nativeTransfers(tx *solana.Transaction) []NativeTransfer {
	meta := tx.Meta
	if len(meta.PreBalances) != len(meta.PostBalances) ||
		len(meta.PreBalances) > len(tx.Message.AccountKeys) {
		return nil
	}

	var out []NativeTransfer
	for i := range meta.PreBalances {
		delta := int64(meta.PostBalances[i]) - int64(meta.PreBalances[i])
		if delta == 0 {
			continue
		}
		key := tx.Message.AccountKeys[i]
		if delta < 0 {
			out = append(out, NativeTransfer{From: key, AmountSOL: float64(-delta) / lamportsPerSOLf})
		} else {
			out = append(out, NativeTransfer{To: key, AmountSOL: float64(delta) / lamportsPerSOLf})
		}
	}
	return out
}

// tokenTransfers derives per-(owner, mint) SPL movements from the
// token balance deltas.
func tokenTransfers(tx *solana.Transaction) []TokenTransfer {
	type holding struct{ owner, mint string }

	pre := make(map[holding]float64)
	for _, b := range tx.Meta.PreTokenBalances {
		pre[holding{b.Owner, b.Mint}] += b.UIAmount
	}
	post := make(map[holding]float64)
	for _, b := range tx.Meta.PostTokenBalances {
		post[holding{b.Owner, b.Mint}] += b.UIAmount
	}

	seen := make(map[holding]bool)
	var out []TokenTransfer
	add := func(h holding) {
		if seen[h] {
			return
		}
		seen[h] = true
		delta := post[h] - pre[h]
		if delta > 0 {
			out = append(out, TokenTransfer{To: h.owner, Mint: h.mint, Amount: delta})
		} else if delta < 0 {
			out = append(out, TokenTransfer{From: h.owner, Mint: h.mint, Amount: -delta})
		}
	}
	for _, b := range tx.Meta.PreTokenBalances {
		add(holding{b.Owner, b.Mint})
	}
	for _, b := range tx.Meta.PostTokenBalances {
		add(holding{b.Owner, b.Mint})
	}
	return out
}
