package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTxReverted is returned when a mined transaction has status 0.
	ErrTxReverted = errors.New("transaction reverted")

	// ErrNotDeployed is returned when no contract code exists at an address.
	ErrNotDeployed = errors.New("no contract code at address")

	// ErrAmountOutOfRange is returned for amounts outside [0, 2^256-1].
	ErrAmountOutOfRange = errors.New("amount out of uint256 range")
)

// RevertError is a revert carrying a plain Error(string) reason.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("execution reverted: %s", e.Reason)
}

// CustomError is a revert carrying a named Solidity custom error.
type CustomError struct {
	Name string
	Args []interface{}
}

func (e *CustomError) Error() string {
	if len(e.Args) == 0 {
		return fmt.Sprintf("execution reverted: custom error %s()", e.Name)
	}

	parts := make([]string, 0, len(e.Args))
	for _, arg := range e.Args {
		parts = append(parts, fmt.Sprintf("%v", arg))
	}

	return fmt.Sprintf("execution reverted: custom error %s(%s)", e.Name, strings.Join(parts, ", "))
}

// VerificationError is returned when the block explorer rejects a source verification.
type VerificationError struct {
	GUID    string
	Message string
}

func (e *VerificationError) Error() string {
	if e.GUID != "" {
		return fmt.Sprintf("verification failed (GUID: %s): %s", e.GUID, e.Message)
	}

	return fmt.Sprintf("verification failed: %s", e.Message)
}

// Revert reasons produced by the betting contract.
const (
	ReasonOnlyOwner       = "Only the owner can perform this action"
	ReasonZeroAmount      = "Bet amount must be greater than zero"
	ReasonBetNotFound     = "Bet does not exist"
	ReasonBetResolved     = "Bet already resolved"
	ReasonInvalidOption   = "Invalid option"
	ReasonTooFewOptions   = "At least two options are required"
	ReasonDuplicateOption = "Duplicate option"
	ReasonEmptyTopic      = "Topic cannot be empty"
)

// ERC20 custom error names (OpenZeppelin v5 IERC20Errors).
const (
	ErrERC20InsufficientBalance   = "ERC20InsufficientBalance"
	ErrERC20InsufficientAllowance = "ERC20InsufficientAllowance"
	ErrERC20InvalidSender         = "ERC20InvalidSender"
	ErrERC20InvalidReceiver       = "ERC20InvalidReceiver"
	ErrERC20InvalidApprover       = "ERC20InvalidApprover"
	ErrERC20InvalidSpender        = "ERC20InvalidSpender"
)

// IsRevertReason reports whether err is a RevertError with the given reason.
func IsRevertReason(err error, reason string) bool {
	var revertErr *RevertError
	if !errors.As(err, &revertErr) {
		return false
	}
	return revertErr.Reason == reason
}

// IsCustomError reports whether err is a CustomError with the given name.
func IsCustomError(err error, name string) bool {
	var customErr *CustomError
	if !errors.As(err, &customErr) {
		return false
	}
	return customErr.Name == name
}
