// Package retry decides whether a failure is worth retrying and re-runs
// effect-tolerant operations with jittered exponential backoff.
package retry

import (
	"errors"
	"net"
	"reflect"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vietddude/pointboard/internal/core/apperr"
)

// Decision is the outcome of classifying an error.
type Decision int

const (
	NonRetryable Decision = iota
	Retryable
)

func (d Decision) String() string {
	if d == Retryable {
		return "retryable"
	}
	return "non_retryable"
}

// Classifier maps an error to a Decision.
type Classifier func(err error) Decision

// Machine codes, compared upper-cased. POSIX names cover socket and resolver
// failures, the rest are PostgreSQL SQLSTATEs and PostgREST codes.
var transientCodes = map[string]bool{
	"ECONNRESET":   true,
	"ECONNREFUSED": true,
	"ECONNABORTED": true,
	"ETIMEDOUT":    true,
	"ENOTFOUND":    true,
	"EAI_AGAIN":    true,
	"ENETUNREACH":  true,
	"EHOSTUNREACH": true,
	"EPIPE":        true,
	"08000":        true, // connection_exception
	"08001":        true, // sqlclient_unable_to_establish_sqlconnection
	"08003":        true, // connection_does_not_exist
	"08004":        true, // sqlserver_rejected_establishment_of_sqlconnection
	"08006":        true, // connection_failure
	"40001":        true, // serialization_failure
	"40P01":        true, // deadlock_detected
	"53300":        true, // too_many_connections
	"57014":        true, // query_canceled (statement timeout)
	"57P01":        true, // admin_shutdown
	"57P03":        true, // cannot_connect_now
}

var permanentCodes = map[string]bool{
	"23505":    true, // unique_violation
	"23503":    true, // foreign_key_violation
	"23502":    true, // not_null_violation
	"23514":    true, // check_violation
	"22P02":    true, // invalid_text_representation
	"P0002":    true, // no_data_found
	"PGRST116": true, // no rows for single-row request
}

var transientGRPC = map[codes.Code]bool{
	codes.Unavailable:       true,
	codes.DeadlineExceeded:  true,
	codes.ResourceExhausted: true,
	codes.Aborted:           true,
}

var permanentGRPC = map[codes.Code]bool{
	codes.NotFound:           true,
	codes.InvalidArgument:    true,
	codes.AlreadyExists:      true,
	codes.FailedPrecondition: true,
	codes.PermissionDenied:   true,
	codes.Unauthenticated:    true,
	codes.OutOfRange:         true,
	codes.Unimplemented:      true,
}

var (
	transientTypeWords = []string{"timeout", "network", "connect"}
	permanentTypeWords = []string{"validation", "notfound"}

	permanentPhrases = []string{"already completed", "not found", "invalid", "validation"}
	transientPhrases = []string{
		"connection",
		"timeout",
		"timed out",
		"network",
		"fetch failed",
		"failed to create",
		"failed to update",
	}
)

// Classify decides whether err is worth retrying. The first matching rule wins:
// tagged kind, machine code, type name, explicit retryable marker, message
// text. Anything left unmatched is NonRetryable.
func Classify(err error) Decision {
	if err == nil {
		return NonRetryable
	}

	if d, ok := classifyKind(err); ok {
		return d
	}
	if d, ok := classifyCode(err); ok {
		return d
	}
	if d, ok := classifyType(err); ok {
		return d
	}
	if d, ok := classifyMarker(err); ok {
		return d
	}
	if d, ok := classifyMessage(err); ok {
		return d
	}
	return NonRetryable
}

func classifyKind(err error) (Decision, bool) {
	kind, ok := apperr.KindOf(err)
	if !ok {
		return NonRetryable, false
	}
	switch kind {
	case apperr.KindNotFound, apperr.KindValidation, apperr.KindForbidden, apperr.KindFatal:
		return NonRetryable, true
	case apperr.KindTransient:
		return Retryable, true
	}
	return NonRetryable, false
}

func classifyCode(err error) (Decision, bool) {
	for _, code := range errorCodes(err) {
		code = strings.ToUpper(code)
		if transientCodes[code] {
			return Retryable, true
		}
		if permanentCodes[code] {
			return NonRetryable, true
		}
	}

	if st, ok := status.FromError(err); ok {
		if transientGRPC[st.Code()] {
			return Retryable, true
		}
		if permanentGRPC[st.Code()] {
			return NonRetryable, true
		}
	}
	return NonRetryable, false
}

// errorCodes collects every machine code err exposes.
func errorCodes(err error) []string {
	var out []string

	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		out = append(out, coded.ErrorCode())
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		out = append(out, pgErr.Code)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		out = append(out, string(pqErr.Code))
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		if name := errnoName(errno); name != "" {
			out = append(out, name)
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		out = append(out, "ENOTFOUND")
	}
	return out
}

func errnoName(errno syscall.Errno) string {
	switch errno {
	case syscall.ECONNRESET:
		return "ECONNRESET"
	case syscall.ECONNREFUSED:
		return "ECONNREFUSED"
	case syscall.ECONNABORTED:
		return "ECONNABORTED"
	case syscall.ETIMEDOUT:
		return "ETIMEDOUT"
	case syscall.ENETUNREACH:
		return "ENETUNREACH"
	case syscall.EHOSTUNREACH:
		return "EHOSTUNREACH"
	case syscall.EPIPE:
		return "EPIPE"
	}
	return ""
}

func classifyType(err error) (Decision, bool) {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if t, ok := e.(interface{ Timeout() bool }); ok && t.Timeout() {
			return Retryable, true
		}
		if _, ok := e.(*net.OpError); ok {
			return Retryable, true
		}

		name := typeName(e)
		for _, w := range permanentTypeWords {
			if strings.Contains(name, w) {
				return NonRetryable, true
			}
		}
		for _, w := range transientTypeWords {
			if strings.Contains(name, w) {
				return Retryable, true
			}
		}
	}
	return NonRetryable, false
}

func typeName(err error) string {
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return strings.ToLower(t.Name())
}

func classifyMarker(err error) (Decision, bool) {
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return decide(r.Retryable()), true
	}
	var ir interface{ IsRetryable() bool }
	if errors.As(err, &ir) {
		return decide(ir.IsRetryable()), true
	}

	if st, ok := status.FromError(err); ok {
		for _, d := range st.Details() {
			if _, ok := d.(*errdetails.RetryInfo); ok {
				return Retryable, true
			}
		}
	}
	return NonRetryable, false
}

func classifyMessage(err error) (Decision, bool) {
	msg := strings.ToLower(err.Error())
	for _, p := range permanentPhrases {
		if strings.Contains(msg, p) {
			return NonRetryable, true
		}
	}
	for _, p := range transientPhrases {
		if strings.Contains(msg, p) {
			return Retryable, true
		}
	}
	return NonRetryable, false
}

func decide(retryable bool) Decision {
	if retryable {
		return Retryable
	}
	return NonRetryable
}
