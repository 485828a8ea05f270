package chain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed chain operation
type ErrorKind string

const (
	KindConnection ErrorKind = "connection"
	KindBuild      ErrorKind = "build"
	KindSigning    ErrorKind = "signing"
	KindBroadcast  ErrorKind = "broadcast"
	KindRevert     ErrorKind = "revert"
	KindTimeout    ErrorKind = "timeout"
)

// TxError is returned by every Client operation
type TxError struct {
	Kind    ErrorKind
	ChainID int64
	Op      string
	// TxHash is set once the transaction was broadcast
	TxHash string
	Err    error
}

func (e *TxError) Error() string {
	msg := fmt.Sprintf("%s error on chain %d during %s", e.Kind, e.ChainID, e.Op)
	if e.TxHash != "" {
		msg += " (tx " + e.TxHash + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TxError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a TxError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var txErr *TxError
	return errors.As(err, &txErr) && txErr.Kind == kind
}

var errReverted = errors.New("transaction reverted")

func newTxError(kind ErrorKind, chainID int64, op string, err error) *TxError {
	return &TxError{Kind: kind, ChainID: chainID, Op: op, Err: err}
}
