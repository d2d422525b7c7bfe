package study

import (
	"fmt"
	"net/mail"

	"github.com/trezcool/studygroups/core"
)

const (
	groupFormedTmpl = "group_formed"
	seatFilledTmpl  = "seat_filled"
)

type mailData struct {
	AppName  string
	Name     string
	Subject  string
	Language string
	GroupID  int
	Mates    []string
}

func (svc *Service) groupFormedMessages(subject, language string, g Group) []*core.EmailMessage {
	var msgs []*core.EmailMessage
	for _, m := range g.Members {
		if m.Email == "" {
			continue
		}
		mates := make([]string, 0, len(g.Members)-1)
		for _, o := range g.Members {
			if o.ID != m.ID {
				mates = append(mates, o.Name)
			}
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: m.Name, Address: m.Email}},
			Subject:      fmt.Sprintf("Your %s study group", subject),
			TemplateName: groupFormedTmpl,
			TemplateData: mailData{
				AppName:  svc.appName,
				Name:     m.Name,
				Subject:  subject,
				Language: language,
				GroupID:  g.ID,
				Mates:    mates,
			},
		})
	}
	return msgs
}

func (svc *Service) seatFilledMessage(subject, language string, groupID int, s Student) *core.EmailMessage {
	if s.Email == "" {
		return nil
	}
	return &core.EmailMessage{
		To:           []mail.Address{{Name: s.Name, Address: s.Email}},
		Subject:      fmt.Sprintf("A %s study group seat is yours", subject),
		TemplateName: seatFilledTmpl,
		TemplateData: mailData{
			AppName:  svc.appName,
			Name:     s.Name,
			Subject:  subject,
			Language: language,
			GroupID:  groupID,
		},
	}
}

func (svc *Service) send(msgs ...*core.EmailMessage) {
	if svc.mailSvc == nil || len(msgs) == 0 {
		return
	}
	svc.mailSvc.SendMessages(msgs...)
}
