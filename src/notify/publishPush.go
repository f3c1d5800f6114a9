package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sns"

	apperrors "cgm-alert-pipeline/src/errors"
)

type apnsPayload struct {
	APS struct {
		Alert struct {
			Title string `json:"title"`
			Body  string `json:"body"`
		} `json:"alert"`
		Sound string `json:"sound"`
	} `json:"aps"`
	NotificationID string `json:"notificationId"`
}

type gcmPayload struct {
	Notification struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	} `json:"notification"`
	Data struct {
		NotificationID string `json:"notificationId"`
	} `json:"data"`
}

// PublishPush sends a push to a topic or a platform endpoint ARN.
func (n *Notifier) PublishPush(ctx context.Context, destination, title, message, notificationID string) error {
	body, err := pushMessage(title, message, notificationID)
	if err != nil {
		return err
	}

	input := &sns.PublishInput{
		Message:          aws.String(body),
		MessageStructure: aws.String("json"),
	}
	if strings.Contains(destination, ":endpoint/") {
		input.TargetArn = aws.String(destination)
	} else {
		input.TopicArn = aws.String(destination)
	}

	if _, err := n.sns.PublishWithContext(ctx, input); err != nil {
		return apperrors.NewExternalAPIError(err, "sns").WithContext("destination", destination)
	}
	return nil
}

func pushMessage(title, message, notificationID string) (string, error) {
	var apns apnsPayload
	apns.APS.Alert.Title = title
	apns.APS.Alert.Body = message
	apns.APS.Sound = "default"
	apns.NotificationID = notificationID

	var gcm gcmPayload
	gcm.Notification.Title = title
	gcm.Notification.Body = message
	gcm.Data.NotificationID = notificationID

	apnsJSON, err := json.Marshal(apns)
	if err != nil {
		return "", fmt.Errorf("marshal apns payload: %w", err)
	}
	gcmJSON, err := json.Marshal(gcm)
	if err != nil {
		return "", fmt.Errorf("marshal gcm payload: %w", err)
	}

	envelope, err := json.Marshal(map[string]string{
		"default":      title + ": " + message,
		"APNS":         string(apnsJSON),
		"APNS_SANDBOX": string(apnsJSON),
		"GCM":          string(gcmJSON),
	})
	if err != nil {
		return "", fmt.Errorf("marshal sns envelope: %w", err)
	}
	return string(envelope), nil
}
