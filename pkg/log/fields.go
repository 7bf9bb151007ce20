package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (matches pkg/middleware/auth.go keys)
	FieldActor = "actor"

	// Service
	FieldService = "service"

	// Follow graph
	FieldEntity     = "entity"
	FieldFollower   = "follower"
	FieldFollowable = "followable"
	FieldRelationID = "relation_id"
	FieldQuery      = "query"
)
