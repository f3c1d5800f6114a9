package notify

import (
	"github.com/aws/aws-sdk-go/service/pinpointsmsvoice/pinpointsmsvoiceiface"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
)

// Notifier dispatches push notifications through SNS and voice alerts
// through Pinpoint SMS and Voice.
type Notifier struct {
	sns               snsiface.SNSAPI
	voice             pinpointsmsvoiceiface.PinpointSMSVoiceAPI
	originationNumber string
	callerID          string
}

func NewNotifier(sns snsiface.SNSAPI, voice pinpointsmsvoiceiface.PinpointSMSVoiceAPI, originationNumber, callerID string) *Notifier {
	return &Notifier{
		sns:               sns,
		voice:             voice,
		originationNumber: originationNumber,
		callerID:          callerID,
	}
}
