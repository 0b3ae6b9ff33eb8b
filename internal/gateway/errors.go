package gateway

import "mcpgateway/internal/jsonrpc"

// httpStatusForCode maps a JSON-RPC error code to the HTTP status the
// gateway uses when the error is reported outside of a streaming response
// (202/404/etc. paths), per the gateway's HTTP status mapping table.
func httpStatusForCode(code int) int {
	switch code {
	case jsonrpc.CodeUnauthenticated:
		return 401
	case jsonrpc.CodeAuthenticationFailed:
		return 403
	case jsonrpc.CodeMethodNotFound, jsonrpc.CodeResourceNotFound:
		return 404
	case jsonrpc.CodeInvalidParams, jsonrpc.CodeInvalidRequest:
		return 400
	case jsonrpc.CodeSessionNotFound, jsonrpc.CodeInvalidSessionID:
		return 404
	case jsonrpc.CodeServerConnection, jsonrpc.CodeServerUnavailable:
		return 502
	case jsonrpc.CodeRequestTimeout, jsonrpc.CodeServerTimeout:
		return 504
	default:
		return 500
	}
}
