package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[RefreshMessage]     = (*RefreshCommand)(nil)
	_ gocmd.Commander[TransferMessage]    = (*TransferCommand)(nil)
	_ gocmd.Commander[SetEndpointMessage] = (*SetEndpointCommand)(nil)
)
