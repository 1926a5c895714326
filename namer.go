package otxhook

import "strings"

// SpanNamer defines how operation identities are transformed into span names.
type SpanNamer interface {
	Name(operation string) string
}

// DefaultNamer returns operation identities unchanged, so a hooked method
// produces a span named "Class::method".
type DefaultNamer struct{}

// Name returns the operation identity as is.
func (DefaultNamer) Name(operation string) string {
	return operation
}

// NameMethod returns the operation identity of a method: "Class::method".
// A bare function (empty class) is identified by its name alone.
func NameMethod(class, function string) string {
	if class == "" {
		return function
	}

	return class + "::" + function
}

// SplitOperation splits an operation identity produced by [NameMethod] back
// into its class and function parts.
func SplitOperation(operation string) (class, function string) {
	if i := strings.LastIndex(operation, "::"); i >= 0 {
		return operation[:i], operation[i+2:]
	}

	return "", operation
}

// NameRPC returns a compliant span name for an RPC call: "Service/Method".
// Example: "Greeter/SayHello"
func NameRPC(service, method string) string {
	return service + "/" + method
}

// NameMessaging returns a compliant span name for a messaging operation: "verb destination".
// Example: "process orders"
func NameMessaging(verb, destination string) string {
	return verb + " " + destination
}
