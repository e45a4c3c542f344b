package grpcpeer

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"filerelay/internal/transfer"
)

const (
	fieldTransferID         = "transfer_id"
	fieldSender             = "sender"
	fieldRecipient          = "recipient"
	fieldFilename           = "filename"
	fieldSenderReference    = "sender_reference"
	fieldRecipientReference = "recipient_reference"
	fieldAttachmentID       = "attachment_id"
)

func manifestToStruct(m transfer.Manifest) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		fieldTransferID:         m.TransferID,
		fieldSender:             m.Sender,
		fieldRecipient:          m.Recipient,
		fieldFilename:           m.Filename,
		fieldSenderReference:    m.SenderReference,
		fieldRecipientReference: m.RecipientReference,
		fieldAttachmentID:       m.AttachmentID,
	})
}

func manifestFromStruct(s *structpb.Struct) (transfer.Manifest, error) {
	fields := s.GetFields()
	get := func(key string) string {
		return fields[key].GetStringValue()
	}
	m := transfer.Manifest{
		TransferID:         get(fieldTransferID),
		Sender:             get(fieldSender),
		Recipient:          get(fieldRecipient),
		Filename:           get(fieldFilename),
		SenderReference:    get(fieldSenderReference),
		RecipientReference: get(fieldRecipientReference),
		AttachmentID:       get(fieldAttachmentID),
	}
	if m.AttachmentID == "" {
		return m, fmt.Errorf("manifest missing %s", fieldAttachmentID)
	}
	if m.TransferID == "" {
		return m, fmt.Errorf("manifest missing %s", fieldTransferID)
	}
	return m, nil
}
