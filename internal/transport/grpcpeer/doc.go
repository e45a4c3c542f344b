// Package grpcpeer carries transfers directly between nodes over gRPC.
//
// The service uses protobuf well-known types so no protoc step is needed.
// A transfer is two calls: UploadAttachment stores the container on the
// recipient and returns its content ID, then SubmitTransfer sends the
// manifest naming that ID. The recipient resolves the whole attachment before
// handing the transfer to its receiver, and answers only once the files are
// on disk.
package grpcpeer
