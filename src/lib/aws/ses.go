package aws

import (
	"context"
	"fmt"

	"guilance/src/lib"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"
)

func SESSendMessage(ctx context.Context, input *lib.SendMailInput) error {
	c := lib.AWSGetSESClient()
	if c == nil {
		return fmt.Errorf("ses client unavailable")
	}
	content := &types.Content{Data: aws.String(input.Body), Charset: aws.String("UTF-8")}
	body := &types.Body{Text: content}
	if input.Html {
		body = &types.Body{Html: content}
	}
	source := input.From
	if input.FromName != "" {
		source = fmt.Sprintf("%s <%s>", input.FromName, input.From)
	}
	out, err := c.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(source),
		Destination: &types.Destination{
			ToAddresses:  input.To,
			CcAddresses:  input.Cc,
			BccAddresses: input.Bcc,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(input.Subject), Charset: aws.String("UTF-8")},
			Body:    body,
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	zap.L().Info("sent email", zap.String("message_id", aws.ToString(out.MessageId)))
	return nil
}
