package service

import (
	"fmt"
	"strings"

	"github.com/hksamms/samms-services/internal/mail"
)

const signature = "\n\n- HK-SAMMS Team"

func welcomeEmail(to, name, username string) mail.Message {
	return mail.Message{
		To:      []string{to},
		Subject: "Account Created - HK-SAMMS",
		Text: fmt.Sprintf("Hello %s,\n\nYour account has been successfully created.\n\nUsername: %s\n"+
			"Please use your registered password to log in.\n\nWelcome aboard!"+signature, name, username),
	}
}

func accountUpdatedEmail(to, username string, changes []string) mail.Message {
	lines := make([]string, len(changes))
	for i, c := range changes {
		lines[i] = "- " + c
	}
	return mail.Message{
		To:      []string{to},
		Subject: "Account Updated - HK-SAMMS",
		Text: fmt.Sprintf("Hello %s,\n\nYour account details have been updated:\n%s\n\n"+
			"If this wasn't you, contact admin."+signature, username, strings.Join(lines, "\n")),
	}
}

func statusEmail(to, username, status string) mail.Message {
	if status == "Inactive" {
		return mail.Message{
			To:      []string{to},
			Subject: "Account Deactivated - HK-SAMMS",
			Text: fmt.Sprintf("Hello %s,\n\nYour account has been deactivated by the admin. "+
				"You will not be able to log in until it is reactivated."+signature, username),
		}
	}
	return mail.Message{
		To:      []string{to},
		Subject: "Account Reactivated - HK-SAMMS",
		Text: fmt.Sprintf("Hello %s,\n\nGood news! Your account has been reactivated by the admin. "+
			"You may now log in again.\n\nWelcome back!"+signature, username),
	}
}

func deactivatedLoginEmail(to, username string) mail.Message {
	return mail.Message{
		To:      []string{to},
		Subject: "Account Deactivated - HK-SAMMS",
		Text: fmt.Sprintf("Hello %s,\n\nYour account has been deactivated. "+
			"Please contact admin for reactivation.", username),
	}
}

func otpEmail(to, code string) mail.Message {
	return mail.Message{
		To:      []string{to},
		Subject: "Your OTP Code - HK-SAMMS",
		Text:    fmt.Sprintf("Your OTP code is %s. It expires in 10 minutes.", code),
	}
}

func passwordResetEmail(to, username string) mail.Message {
	return mail.Message{
		To:      []string{to},
		Subject: "Password Reset Confirmation - HK-SAMMS",
		Text: fmt.Sprintf("Hello %s,\n\nYour password has been successfully reset. "+
			"If you did not initiate this change, please contact support immediately."+signature, username),
	}
}
