// Package rpc encodes and decodes clearing-node frames.
//
// Wire format
//
//	request   {"req":[id, method, params, timestamp], "sig":["0x…"]}
//	response  {"res":[id, method, result, timestamp], "sig":["0x…"]}
//	error     {"res":[id, "error", {"error": "…"}, timestamp]} or {"error":{…}}
//
// Requests are signed over keccak256 of the exact bytes of the req array.
// auth_request goes out unsigned; auth_verify carries the wallet's EIP-712
// signature instead of a session signature.
//
// Parse never fails loudly: frames that are not JSON, lack a res array or
// name a method the client does not handle decode to nil.
package rpc
