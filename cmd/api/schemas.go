package main

import (
	"quill/pkg/sanitize"
	"quill/pkg/validate"
)

var registerSchema = validate.Schema{
	"name":     {Kind: validate.String, Required: true, Trim: true, MinLen: 2, MaxLen: 60, Sanitize: sanitize.Text},
	"email":    {Kind: validate.String, Required: true, Trim: true, MaxLen: 254, Email: true},
	"password": {Kind: validate.String, Required: true, Password: true},
}

var loginSchema = validate.Schema{
	"email":    {Kind: validate.String, Required: true, Trim: true, Email: true},
	"password": {Kind: validate.String, Required: true},
}

var profileSchema = validate.Schema{
	"name": {Kind: validate.String, Trim: true, MinLen: 2, MaxLen: 60, Sanitize: sanitize.Text},
	"bio":  {Kind: validate.String, Trim: true, MaxLen: 500, Sanitize: sanitize.Text},
}

var postSchema = validate.Schema{
	"title":      {Kind: validate.String, Required: true, Trim: true, MinLen: 2, MaxLen: 200, Sanitize: sanitize.Text},
	"content":    {Kind: validate.String, Required: true, MaxLen: 50000, Sanitize: sanitize.HTML},
	"categoryId": {Kind: validate.IDRef},
	"tags":       {Kind: validate.StringSlice, Each: &validate.Field{Kind: validate.String, Trim: true, MinLen: 1, MaxLen: 40, Sanitize: sanitize.Text}},
}

var postPatchSchema = validate.Schema{
	"title":      {Kind: validate.String, Trim: true, MinLen: 2, MaxLen: 200, Sanitize: sanitize.Text},
	"content":    {Kind: validate.String, MinLen: 1, MaxLen: 50000, Sanitize: sanitize.HTML},
	"categoryId": {Kind: validate.IDRef},
	"tags":       {Kind: validate.StringSlice, Each: &validate.Field{Kind: validate.String, Trim: true, MinLen: 1, MaxLen: 40, Sanitize: sanitize.Text}},
}

var categorySchema = validate.Schema{
	"name": {Kind: validate.String, Required: true, Trim: true, MinLen: 2, MaxLen: 40, Sanitize: sanitize.Text},
}

var commentSchema = validate.Schema{
	"body": {Kind: validate.String, Required: true, Trim: true, MinLen: 1, MaxLen: 1000, Sanitize: sanitize.Text},
}
