package kwp2000

import (
	"errors"
	"fmt"
)

var (
	ErrShortRead        = errors.New("short read")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrMessageTooLong   = errors.New("message too long")
)

// ChecksumError carries the checksum computed locally and the trailer the
// device sent.
type ChecksumError struct {
	Want byte
	Got  byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum failed 0x%02X != 0x%02X", e.Want, e.Got)
}

func (e *ChecksumError) Is(target error) bool {
	return target == ErrChecksumMismatch
}

const (
	GENERAL_REJECT                                     = 0x10
	SERVICE_NOT_SUPPORTED                              = 0x11
	SUBFUNCTION_NOT_SUPPORTED_OR_INVALID_FORMAT        = 0x12
	BUSY_REPEAT_REQUEST                                = 0x21
	CONDITIONS_NOT_CORRECT_OR_REQUEST_SEQUENCE_ERROR   = 0x22
	ROUTINE_NOT_COMPLETE_OR_SERVICE_IN_PROGRESS        = 0x23
	REQUEST_OUT_OF_RANGE                               = 0x31
	SECURITY_ACCESS_DENIED                             = 0x33
	INVALID_KEY                                        = 0x35
	EXCEED_NUMBER_OF_ATTEMPTS                          = 0x36
	REQUIRED_TIME_DELAY_NOT_EXPIRED                    = 0x37
	DOWNLOAD_NOT_ACCEPTED                              = 0x40
	IMPROPER_DOWNLOAD_TYPE                             = 0x41
	CANNOT_DOWNLOAD_TO_SPECIFIED_ADDRESS               = 0x42
	CANNOT_DOWNLOAD_NUMBER_OF_BYTES_REQUESTED          = 0x43
	TRANSFER_SUSPENDED                                 = 0x71
	TRANSFER_ABORTED                                   = 0x72
	ILLEGAL_ADDRESS_IN_BLOCK_TRANSFER                  = 0x74
	ILLEGAL_BYTE_COUNT_IN_BLOCK_TRANSFER               = 0x75
	ILLEGAL_BLOCK_TRANSFER_TYPE                        = 0x76
	BLOCK_TRANSFER_DATA_CHECKSUM_ERROR                 = 0x77
	REQUEST_CORRECTLY_RECEIVED_RESPONSE_PENDING        = 0x78
	INCORRECT_BYTE_COUNT_DURING_BLOCK_TRANSFER         = 0x79
	SERVICE_NOT_SUPPORTED_IN_ACTIVE_DIAGNOSTIC_SESSION = 0x80
)

type KWP2000Error struct {
	Code byte
	Msg  string
}

func (k *KWP2000Error) Error() string {
	return fmt.Sprintf("%s (0x%02X)", k.Msg, k.Code)
}

// TranslateErrorCode maps a negative response code to an error, 0x00 is
// an affirmative response and yields nil.
func TranslateErrorCode(p byte) error {
	switch p {
	case 0x00:
		return nil
	case GENERAL_REJECT:
		return &KWP2000Error{p, "General reject"}
	case SERVICE_NOT_SUPPORTED:
		return &KWP2000Error{p, "Mode not supported"}
	case SUBFUNCTION_NOT_SUPPORTED_OR_INVALID_FORMAT:
		return &KWP2000Error{p, "Sub-function not supported - invalid format"}
	case BUSY_REPEAT_REQUEST:
		return &KWP2000Error{p, "Busy, repeat request"}
	case CONDITIONS_NOT_CORRECT_OR_REQUEST_SEQUENCE_ERROR:
		return &KWP2000Error{p, "Conditions not correct or request sequence error"}
	case ROUTINE_NOT_COMPLETE_OR_SERVICE_IN_PROGRESS:
		return &KWP2000Error{p, "Routine not completed or service in progress"}
	case REQUEST_OUT_OF_RANGE:
		return &KWP2000Error{p, "Request out of range or session dropped"}
	case SECURITY_ACCESS_DENIED:
		return &KWP2000Error{p, "Security access denied"}
	case INVALID_KEY:
		return &KWP2000Error{p, "Invalid key supplied"}
	case EXCEED_NUMBER_OF_ATTEMPTS:
		return &KWP2000Error{p, "Exceeded number of attempts to get security access"}
	case REQUIRED_TIME_DELAY_NOT_EXPIRED:
		return &KWP2000Error{p, "Required time delay not expired, you cannot gain security access at this moment"}
	case DOWNLOAD_NOT_ACCEPTED:
		return &KWP2000Error{p, "Download (PC -> ECU) not accepted"}
	case IMPROPER_DOWNLOAD_TYPE:
		return &KWP2000Error{p, "Improper download (PC -> ECU) type"}
	case CANNOT_DOWNLOAD_TO_SPECIFIED_ADDRESS:
		return &KWP2000Error{p, "Unable to download (PC -> ECU) to specified address"}
	case CANNOT_DOWNLOAD_NUMBER_OF_BYTES_REQUESTED:
		return &KWP2000Error{p, "Unable to download (PC -> ECU) number of bytes requested"}
	case TRANSFER_SUSPENDED:
		return &KWP2000Error{p, "Transfer suspended"}
	case TRANSFER_ABORTED:
		return &KWP2000Error{p, "Transfer aborted"}
	case ILLEGAL_ADDRESS_IN_BLOCK_TRANSFER:
		return &KWP2000Error{p, "Illegal address in block transfer"}
	case ILLEGAL_BYTE_COUNT_IN_BLOCK_TRANSFER:
		return &KWP2000Error{p, "Illegal byte count in block transfer"}
	case ILLEGAL_BLOCK_TRANSFER_TYPE:
		return &KWP2000Error{p, "Illegal block transfer type"}
	case BLOCK_TRANSFER_DATA_CHECKSUM_ERROR:
		return &KWP2000Error{p, "Block transfer data checksum error"}
	case REQUEST_CORRECTLY_RECEIVED_RESPONSE_PENDING:
		return &KWP2000Error{p, "Response pending"}
	case INCORRECT_BYTE_COUNT_DURING_BLOCK_TRANSFER:
		return &KWP2000Error{p, "Incorrect byte count during block transfer"}
	case SERVICE_NOT_SUPPORTED_IN_ACTIVE_DIAGNOSTIC_SESSION:
		return &KWP2000Error{p, "Service not supported in current diagnostics session"}
	default:
		return &KWP2000Error{p, "Unknown error"}
	}
}
