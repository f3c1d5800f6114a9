package notify

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/pinpointsmsvoice"

	apperrors "cgm-alert-pipeline/src/errors"
)

const (
	lowSelfText       = "This is your glucose alert. Your glucose is below your low alert level. Please check your glucose now."
	lowGuardianText   = "This is a glucose alert for someone you care for. Their glucose is below your low alert level. Please check on them now."
	highSelfText      = "This is your glucose alert. Your glucose is above your high alert level. Please check your glucose now."
	highGuardianText  = "This is a glucose alert for someone you care for. Their glucose is above your high alert level. Please check on them now."
	voiceLanguageCode = "en-US"
	voiceID           = "Joanna"
)

func (n *Notifier) SendLowAlertVoiceCall(ctx context.Context, phoneNumber string, isGuardian bool) error {
	text := lowSelfText
	if isGuardian {
		text = lowGuardianText
	}
	return n.sendVoice(ctx, phoneNumber, text)
}

func (n *Notifier) SendHighAlertVoiceCall(ctx context.Context, phoneNumber string, isGuardian bool) error {
	text := highSelfText
	if isGuardian {
		text = highGuardianText
	}
	return n.sendVoice(ctx, phoneNumber, text)
}

func (n *Notifier) sendVoice(ctx context.Context, phoneNumber, text string) error {
	input := &pinpointsmsvoice.SendVoiceMessageInput{
		DestinationPhoneNumber: aws.String(phoneNumber),
		OriginationPhoneNumber: aws.String(n.originationNumber),
		Content: &pinpointsmsvoice.VoiceMessageContent{
			PlainTextMessage: &pinpointsmsvoice.PlainTextMessageType{
				LanguageCode: aws.String(voiceLanguageCode),
				Text:         aws.String(text),
				VoiceId:      aws.String(voiceID),
			},
		},
	}
	if n.callerID != "" {
		input.CallerId = aws.String(n.callerID)
	}

	if _, err := n.voice.SendVoiceMessageWithContext(ctx, input); err != nil {
		return apperrors.NewExternalAPIError(err, "pinpoint-voice")
	}
	return nil
}
