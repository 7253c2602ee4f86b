package smpp

import (
	"fmt"

	"github.com/Mbosco/vumi/pdu"
)

// Error is the general-purpose error this package returns for conditions
// that aren't a PDU-level SMPP status (sending window exhaustion, invalid
// state transitions, a bind that never completed). Temp marks whether a
// caller should expect a retry to succeed without any config change.
type Error struct {
	Msg  string
	Temp bool
}

func (e Error) Error() string {
	return e.Msg
}

// Temporary reports whether the failure is expected to be transient.
func (e Error) Temporary() bool {
	return e.Temp
}

// StatusError wraps a command_status value returned in a PDU response,
// giving it a human-readable message alongside the raw code so a caller
// that only cares about retryability can still type-assert to Status().
type StatusError struct {
	msg    string
	status pdu.Status
}

func (se StatusError) Error() string {
	return fmt.Sprintf("%s '0x%X'", se.msg, int(se.status))
}

// Status returns the PDU command_status this error was built from.
func (se StatusError) Status() pdu.Status {
	return se.status
}

// statusMessages gives every SMPP 3.4 command_status a human-readable
// description, used by toError to build a StatusError without a giant
// switch statement.
var statusMessages = map[pdu.Status]string{
	pdu.StatusInvMsgLen:       "Message Length is invalid",
	pdu.StatusInvCmdLen:       "Command Length is invalid",
	pdu.StatusInvCmdID:        "Invalid Command ID",
	pdu.StatusInvBnd:          "Incorrect BIND Status for given command",
	pdu.StatusAlyBnd:          "ESME Already in Bound State",
	pdu.StatusInvPrtFlg:       "Invalid Priority Flag",
	pdu.StatusInvRegDlvFlg:    "Invalid Registered Delivery Flag",
	pdu.StatusSysErr:          "System Error",
	pdu.StatusInvSrcAdr:       "Invalid Source Address",
	pdu.StatusInvDstAdr:       "Invalid Destination Address",
	pdu.StatusInvMsgID:        "Message ID is invalid",
	pdu.StatusBindFail:        "Bind Failed",
	pdu.StatusInvPaswd:        "Invalid Password",
	pdu.StatusInvSysID:        "Invalid System ID",
	pdu.StatusCancelFail:      "Cancel SM Failed",
	pdu.StatusReplaceFail:     "Replace SM Failed",
	pdu.StatusMsgQFul:         "Message Queue Full",
	pdu.StatusInvSerTyp:       "Invalid Service Type",
	pdu.StatusInvNumDe:        "Invalid number of destinations",
	pdu.StatusInvDLName:       "Invalid Distribution List name",
	pdu.StatusInvDestFlag:     "Destination flag (submit_multi)",
	pdu.StatusInvSubRep:       "Invalid 'submit with replace' request",
	pdu.StatusInvEsmClass:     "Invalid esm_class field data",
	pdu.StatusCntSubDL:        "Cannot Submit to Distribution List",
	pdu.StatusSubmitFail:      "submit_sm or submit_multi failed",
	pdu.StatusInvSrcTON:       "Invalid Source address TON",
	pdu.StatusInvSrcNPI:       "Invalid Source address NPI",
	pdu.StatusInvDstTON:       "Invalid Destination address TON",
	pdu.StatusInvDstNPI:       "Invalid Destination address NPI",
	pdu.StatusInvSysTyp:       "Invalid system_type field",
	pdu.StatusInvRepFlag:      "Invalid replace_if_present flag",
	pdu.StatusInvNumMsgs:      "Invalid number of messages",
	pdu.StatusThrottled:       "Throttling error (ESME has exceeded allowed message limits)",
	pdu.StatusInvSched:        "Invalid Scheduled Delivery Time",
	pdu.StatusInvExpiry:       "Invalid message Expiry time",
	pdu.StatusInvDftMsgID:     "Predefined Message Invalid or Not Found",
	pdu.StatusTempAppErr:      "ESME Receiver Temporary App Error Code",
	pdu.StatusPermAppErr:      "ESME Receiver Permanent App Error Code",
	pdu.StatusRejeAppErr:      "ESME Receiver Reject Message Error Code",
	pdu.StatusQueryFail:       "query_sm request failed",
	pdu.StatusInvOptParStream: "Error in the optional part of the PDU Body.",
	pdu.StatusOptParNotAllwd:  "Optional Parameter not allowed",
	pdu.StatusInvParLen:       "Invalid Parameter Length.",
	pdu.StatusMissingOptParam: "Expected Optional Parameter missing",
	pdu.StatusInvOptParamVal:  "Invalid Optional Parameter Value",
	pdu.StatusDeliveryFailure: "Delivery Failure",
	pdu.StatusUnknownErr:      "Unknown Error",
}

// toError converts a command_status into an error, or nil for StatusOK.
// A status with no entry in statusMessages (a value outside the SMPP 3.4
// table, or a vendor extension) still comes back as a StatusError so
// callers can always branch on Status() rather than a nil check.
func toError(status pdu.Status) error {
	if status == pdu.StatusOK {
		return nil
	}
	if msg, ok := statusMessages[status]; ok {
		return StatusError{msg, status}
	}
	return StatusError{"Unknown Status", status}
}
